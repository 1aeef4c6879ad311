package cli

import (
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

var gatingFlags struct {
	processName  string
	processID    string
	definitionID string
	nodeID       string
	roles        []string
	forceContext bool
	json         bool
}

var gatingCmd = &cobra.Command{
	Use:   "gating",
	Short: "Show the process context for a position",
	Long: `Builds the gating context the generator would receive.

Without --node and --force-context nothing is attached. With
--force-context the whole process is summarised. With --node the local
view around that step is shown, filtered to the next steps the given
roles may take.`,
	Args: cobra.NoArgs,
	RunE: runGating,
}

func init() {
	f := gatingCmd.Flags()
	f.StringVarP(&gatingFlags.processName, "process", "p", "", "process name")
	f.StringVar(&gatingFlags.processID, "process-id", "", "process element id")
	f.StringVar(&gatingFlags.definitionID, "definition", "", "definitions id")
	f.StringVar(&gatingFlags.nodeID, "node", "", "current node id")
	f.StringSliceVarP(&gatingFlags.roles, "role", "r", nil, "role of the user (repeatable)")
	f.BoolVar(&gatingFlags.forceContext, "force-context", false, "summarise the full process")
	f.BoolVar(&gatingFlags.json, "json", false, "output as JSON")
	rootCmd.AddCommand(gatingCmd)
}

func runGating(cmd *cobra.Command, _ []string) error {
	if gatingService == nil {
		return errNotConfigured("gating")
	}

	gc := gatingService.Build(commandContext(cmd), domain.GatingRequest{
		ProcessName:         gatingFlags.processName,
		ProcessID:           gatingFlags.processID,
		DefinitionID:        gatingFlags.definitionID,
		CurrentNodeID:       gatingFlags.nodeID,
		Roles:               gatingFlags.roles,
		ForceProcessContext: gatingFlags.forceContext,
	})

	if gatingFlags.json {
		return printJSON(cmd, struct {
			*domain.GatingContext
			Detail *domain.PositionDetail `json:"detail,omitempty"`
		}{gc, gc.Detail()})
	}

	cmd.Println(titleStyle.Render("Mode") + " " + modeBadge(gc.Mode))
	if gc.Mode == domain.GatingModeNone {
		cmd.Println(mutedStyle.Render("No process context applies."))
		return nil
	}
	cmd.Println()
	cmd.Println(gc.Hint)

	if d := gc.Detail(); d != nil {
		cmd.Println()
		cmd.Println(subtitleStyle.Render("Permitted next steps"))
		if len(d.Successors) == 0 {
			cmd.Println(mutedStyle.Render("  (none)"))
		}
		for _, s := range d.Successors {
			cmd.Println(successorLine(s))
		}
	}

	cmd.Println()
	meta := gc.Metadata.Map()
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		if v := meta[k]; v != nil {
			cmd.Printf("  %s %v\n", mutedStyle.Render(k+":"), v)
		}
	}
	return nil
}
