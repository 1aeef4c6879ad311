package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

var askFlags struct {
	roles        []string
	processName  string
	processID    string
	definitionID string
	nodeID       string
	tags         []string
	topK         int
	rerank       bool
	rerankTopN   int
	forceContext bool
	skipIntent   bool
	scope        bool
	previous     []string
	json         bool
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question with process context",
	Long: `Runs the full pipeline for one question: intent classification,
gating context for the user's position and roles, and hybrid retrieval.

Non-process questions (greetings, chitchat, off-topic) return a fallback
message instead of passages. Use --node to describe where the user is in
the process and --role to filter next steps by whitelist.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	f := askCmd.Flags()
	f.StringSliceVarP(&askFlags.roles, "role", "r", nil, "role of the user (repeatable)")
	f.StringVarP(&askFlags.processName, "process", "p", "", "process name")
	f.StringVar(&askFlags.processID, "process-id", "", "process element id")
	f.StringVar(&askFlags.definitionID, "definition", "", "definitions id")
	f.StringVar(&askFlags.nodeID, "node", "", "current node id; enables gating")
	f.StringSliceVar(&askFlags.tags, "tag", nil, "restrict retrieval to chunks with this tag (repeatable)")
	f.IntVarP(&askFlags.topK, "top-k", "n", 0, "number of passages (0 = configured default)")
	f.BoolVar(&askFlags.rerank, "rerank", false, "score passages with the cross-encoder")
	f.IntVar(&askFlags.rerankTopN, "rerank-top-n", 0, "fused candidates passed to the cross-encoder")
	f.BoolVar(&askFlags.forceContext, "force-context", false, "attach the full process overview")
	f.BoolVar(&askFlags.skipIntent, "skip-intent", false, "skip classification and always retrieve")
	f.BoolVar(&askFlags.scope, "scope", false, "restrict retrieval to permitted nodes and lanes")
	f.StringArrayVar(&askFlags.previous, "history", nil, "prior turn as role:text, oldest first (repeatable)")
	f.BoolVar(&askFlags.json, "json", false, "output the response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askService == nil {
		return errNotConfigured("ask")
	}

	history, err := parseHistory(askFlags.previous)
	if err != nil {
		return err
	}

	req := domain.AskRequest{
		Query:               args[0],
		Roles:               askFlags.roles,
		History:             history,
		ProcessName:         askFlags.processName,
		ProcessID:           askFlags.processID,
		DefinitionID:        askFlags.definitionID,
		CurrentNodeID:       askFlags.nodeID,
		Tags:                askFlags.tags,
		TopK:                askFlags.topK,
		RerankTopN:          askFlags.rerankTopN,
		ForceProcessContext: askFlags.forceContext,
		SkipIntentCheck:     askFlags.skipIntent,
		ScopeToPermissions:  askFlags.scope,
	}
	if cmd.Flags().Changed("rerank") {
		rerank := askFlags.rerank
		req.Rerank = &rerank
	}

	resp, err := askService.Ask(commandContext(cmd), req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askFlags.json {
		return printJSON(cmd, resp)
	}
	printAskResponse(cmd, resp)
	return nil
}

func printAskResponse(cmd *cobra.Command, resp *domain.AskResponse) {
	cmd.Println(intentBadge(domain.Classification{Intent: resp.Intent, Confidence: resp.Confidence}))
	if !resp.UseRAG {
		cmd.Println()
		cmd.Println(resp.FallbackMessage)
		return
	}
	if resp.EffectiveQuery != "" {
		cmd.Println(mutedStyle.Render("Query: " + resp.EffectiveQuery))
	}

	if resp.Gating != nil && resp.Gating.Mode != domain.GatingModeNone {
		cmd.Println()
		cmd.Println(titleStyle.Render("Process context") + " " + modeBadge(resp.Gating.Mode))
		cmd.Println(hintStyle.Render(resp.Gating.Hint))
	}
	if resp.Position != nil && len(resp.Position.Successors) > 0 {
		cmd.Println()
		cmd.Println(subtitleStyle.Render("Next steps"))
		for _, s := range resp.Position.Successors {
			cmd.Println(successorLine(s))
		}
	}

	cmd.Println()
	printCandidates(cmd, resp.Candidates)
}

func printCandidates(cmd *cobra.Command, cands []domain.Candidate) {
	if len(cands) == 0 {
		cmd.Println("No passages found.")
		return
	}

	cmd.Println(titleStyle.Render("Passages"))
	cmd.Println()
	for i := range cands {
		c := &cands[i]
		label := c.ChunkID
		if c.Chunk.ProcessName != "" {
			label += " · " + c.Chunk.ProcessName
		}
		cmd.Printf("  [%d] %s %s\n", i+1, label, mutedStyle.Render(fmt.Sprintf("(%.4f %s)", c.Score(), c.Source)))
		if text := snippet(c.Chunk.Text, 200); text != "" {
			cmd.Printf("      %s\n", text)
		}
		cmd.Println()
	}
}

// parseHistory reads "role:text" turns. A bare text is a user turn.
func parseHistory(turns []string) ([]domain.ChatTurn, error) {
	out := make([]domain.ChatTurn, 0, len(turns))
	for _, t := range turns {
		role, text, ok := strings.Cut(t, ":")
		if !ok {
			out = append(out, domain.ChatTurn{Role: domain.ChatRoleUser, Content: strings.TrimSpace(t)})
			continue
		}
		r := domain.ChatRole(strings.ToLower(strings.TrimSpace(role)))
		switch r {
		case domain.ChatRoleUser, domain.ChatRoleAssistant, domain.ChatRoleSystem:
		default:
			return nil, fmt.Errorf("history turn %q: unknown role %q", t, role)
		}
		out = append(out, domain.ChatTurn{Role: r, Content: strings.TrimSpace(text)})
	}
	return out, nil
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
