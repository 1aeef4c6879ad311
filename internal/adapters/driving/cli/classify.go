package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

var (
	classifyHistory []string
	classifyJSON    bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [query]",
	Short: "Classify the intent of a question",
	Long: `Decides whether a question is about institutional processes.
Keyword rules run first; the model is asked only when they are inconclusive,
and non-process verdicts below the judge threshold are double-checked.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringArrayVar(&classifyHistory, "history", nil, "prior turn as role:text, oldest first (repeatable)")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(classifyCmd)
}

type classifyOutput struct {
	Intent          domain.Intent `json:"intent"`
	Confidence      float64       `json:"confidence"`
	UseRAG          bool          `json:"use_rag"`
	FallbackMessage string        `json:"fallback_message,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	if intentService == nil {
		return errNotConfigured("intent")
	}

	history, err := parseHistory(classifyHistory)
	if err != nil {
		return err
	}

	c := intentService.Classify(commandContext(cmd), args[0], history)
	out := classifyOutput{Intent: c.Intent, Confidence: c.Confidence, UseRAG: c.Intent.ShouldUseRAG()}
	if !out.UseRAG {
		out.FallbackMessage = c.Intent.FallbackMessage()
	}

	if classifyJSON {
		return printJSON(cmd, out)
	}
	cmd.Println(intentBadge(c))
	if out.FallbackMessage != "" {
		cmd.Println(mutedStyle.Render(out.FallbackMessage))
	}
	return nil
}
