package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

var (
	searchTopK    int
	searchProcess string
	searchTags    []string
	searchRerank  bool
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search process documentation",
	Long: `Performs hybrid search across the imported chunks without intent
classification or gating. Keyword (BM25) and semantic (vector) rankings
are fused with reciprocal rank fusion.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 5, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchProcess, "process", "p", "", "restrict to one process by name")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "restrict to chunks with this tag (repeatable)")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "score results with the cross-encoder")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errNotConfigured("retrieval")
	}

	opts := domain.RetrievalOptions{
		TopK:    searchTopK,
		Filters: domain.Filters{ProcessName: searchProcess, Tags: searchTags},
		Rerank:  searchRerank,
	}

	results, err := retrievalService.Retrieve(commandContext(cmd), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if results == nil {
			results = []domain.Candidate{}
		}
		return printJSON(cmd, results)
	}
	printCandidates(cmd, results)
	return nil
}
