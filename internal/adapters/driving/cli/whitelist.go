package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

var whitelistJSON bool

var whitelistCmd = &cobra.Command{
	Use:     "whitelist",
	Aliases: []string{"wl"},
	Short:   "Manage role-scoped whitelists",
	Long: `Whitelists bind roles to the nodes and lanes of one process they may
work on. Gating uses them to filter the next steps shown to a user.`,
}

var whitelistUpsertCmd = &cobra.Command{
	Use:   "upsert [file.yaml]",
	Short: "Create or replace whitelists from a YAML file",
	Long: `Reads one whitelist or a list of whitelists:

  - id: reise-verwaltung
    name: Verwaltung
    process_id: Process_Reise
    allow_lanes: [Lane_Verwaltung]
    allow_nodes: [Task_Pruefen]
    allow_types: [userTask]
    principals: [reisestelle]

Every relationship of an existing whitelist is replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runWhitelistUpsert,
}

var whitelistGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show a whitelist",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhitelistGet,
}

var whitelistListCmd = &cobra.Command{
	Use:   "list [definition-id]",
	Short: "List the whitelists of a definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhitelistList,
}

var (
	allowedRoles []string
	nextIDs      []string
	nextRoles    []string
	nextDepth    int
)

var whitelistAllowedCmd = &cobra.Command{
	Use:   "allowed [definition-id]",
	Short: "Show the lanes and nodes permitted to roles",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhitelistAllowed,
}

var whitelistNextCmd = &cobra.Command{
	Use:   "next [process-id] [node-id]",
	Short: "List permitted steps reachable from a node",
	Long: `Walks the process graph from a node and lists the permitted nodes
within --depth hops, nearest first. Whitelists are given with --id or
resolved from --role.`,
	Args: cobra.ExactArgs(2),
	RunE: runWhitelistNext,
}

var whitelistDefaultsCmd = &cobra.Command{
	Use:   "defaults [definition-id]",
	Short: "Generate one whitelist per lane",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhitelistDefaults,
}

func init() {
	whitelistCmd.PersistentFlags().BoolVar(&whitelistJSON, "json", false, "output as JSON")
	whitelistAllowedCmd.Flags().StringSliceVarP(&allowedRoles, "role", "r", nil, "role (repeatable)")
	whitelistNextCmd.Flags().StringSliceVar(&nextIDs, "id", nil, "whitelist id (repeatable)")
	whitelistNextCmd.Flags().StringSliceVarP(&nextRoles, "role", "r", nil, "role used to find whitelists (repeatable)")
	whitelistNextCmd.Flags().IntVar(&nextDepth, "depth", domain.DefaultGatingDepth, "maximum hops")

	whitelistCmd.AddCommand(whitelistUpsertCmd)
	whitelistCmd.AddCommand(whitelistGetCmd)
	whitelistCmd.AddCommand(whitelistListCmd)
	whitelistCmd.AddCommand(whitelistAllowedCmd)
	whitelistCmd.AddCommand(whitelistNextCmd)
	whitelistCmd.AddCommand(whitelistDefaultsCmd)
	rootCmd.AddCommand(whitelistCmd)
}

// readWhitelists accepts a single mapping or a sequence.
func readWhitelists(path string) ([]domain.Whitelist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var many []domain.Whitelist
	if err := yaml.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one domain.Whitelist
	if err := yaml.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return []domain.Whitelist{one}, nil
}

func runWhitelistUpsert(cmd *cobra.Command, args []string) error {
	if whitelistService == nil {
		return errNotConfigured("whitelist")
	}

	wls, err := readWhitelists(args[0])
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	for i := range wls {
		if err := whitelistService.Upsert(ctx, wls[i]); err != nil {
			return fmt.Errorf("upsert %q: %w", wls[i].ID, err)
		}
		cmd.Printf("%s %s\n", successStyle.Render("✓"), wls[i].ID)
	}
	return nil
}

func runWhitelistGet(cmd *cobra.Command, args []string) error {
	if whitelistService == nil {
		return errNotConfigured("whitelist")
	}

	wl, err := whitelistService.Get(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if whitelistJSON {
		return printJSON(cmd, wl)
	}
	printWhitelist(cmd, *wl)
	return nil
}

func runWhitelistList(cmd *cobra.Command, args []string) error {
	if whitelistService == nil {
		return errNotConfigured("whitelist")
	}

	wls, err := whitelistService.ListForDefinition(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if whitelistJSON {
		if wls == nil {
			wls = []domain.Whitelist{}
		}
		return printJSON(cmd, wls)
	}
	if len(wls) == 0 {
		cmd.Println("No whitelists found.")
		return nil
	}
	for _, wl := range wls {
		printWhitelist(cmd, wl)
		cmd.Println()
	}
	return nil
}

func printWhitelist(cmd *cobra.Command, wl domain.Whitelist) {
	title := wl.ID
	if wl.Name != "" {
		title += " " + mutedStyle.Render("("+wl.Name+")")
	}
	cmd.Println(titleStyle.Render(title))
	cmd.Printf("  Process:    %s\n", wl.ProcessID)
	cmd.Printf("  Principals: %s\n", joinOrNone(wl.Principals))
	cmd.Printf("  Lanes:      %s\n", joinOrNone(wl.AllowLanes))
	cmd.Printf("  Nodes:      %s\n", joinOrNone(wl.AllowNodes))
	cmd.Printf("  Types:      %s\n", joinOrNone(wl.AllowTypes))
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return mutedStyle.Render("-")
	}
	return strings.Join(items, ", ")
}

func runWhitelistAllowed(cmd *cobra.Command, args []string) error {
	if whitelistService == nil {
		return errNotConfigured("whitelist")
	}

	grant, err := whitelistService.AllowedForPrincipal(commandContext(cmd), args[0], allowedRoles)
	if err != nil {
		return err
	}
	if whitelistJSON {
		return printJSON(cmd, grant)
	}
	cmd.Printf("Lanes: %s\n", joinOrNone(grant.LaneIDs))
	cmd.Printf("Nodes: %s\n", joinOrNone(grant.NodeIDs))
	return nil
}

func runWhitelistNext(cmd *cobra.Command, args []string) error {
	if whitelistService == nil {
		return errNotConfigured("whitelist")
	}

	ctx := commandContext(cmd)
	ids := nextIDs
	if len(ids) == 0 {
		seen := make(map[string]bool)
		for _, role := range nextRoles {
			found, err := whitelistService.WhitelistsForPrincipal(ctx, role)
			if err != nil {
				return err
			}
			for _, id := range found {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}

	nodes, err := whitelistService.NextAllowed(ctx, args[0], args[1], ids, nextDepth)
	if err != nil {
		return err
	}
	if whitelistJSON {
		if nodes == nil {
			nodes = []domain.ReachableNode{}
		}
		return printJSON(cmd, nodes)
	}
	if len(nodes) == 0 {
		cmd.Println("No permitted steps reachable.")
		return nil
	}
	for _, n := range nodes {
		cmd.Printf("  %d  %s %s\n", n.Hops, n.Name, mutedStyle.Render("["+n.ID+", "+string(n.Kind)+"]"))
	}
	return nil
}

func runWhitelistDefaults(cmd *cobra.Command, args []string) error {
	if whitelistService == nil {
		return errNotConfigured("whitelist")
	}

	res, err := whitelistService.CreateDefaults(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if whitelistJSON {
		return printJSON(cmd, res)
	}
	cmd.Printf("Created %d whitelists for %d lanes.\n", res.Whitelists, res.Lanes)
	return nil
}
