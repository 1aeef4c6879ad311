package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driving"
)

var (
	batchOutput string
	batchQuiet  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [dataset.yaml]",
	Short: "Replay a dataset of questions through the pipeline",
	Long: `Runs every query of a dataset through ask with bounded concurrency
and an optional rate limit (batch.concurrency, batch.rate_per_second).

  queries:
    - query: Wie beantrage ich eine Dienstreise?
      roles: [antragsteller]
    - query: Hallo!

Each result is written as one JSON line, in completion order.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write JSON lines to this file (default stdout)")
	batchCmd.Flags().BoolVarP(&batchQuiet, "quiet", "q", false, "print only the summary")
	rootCmd.AddCommand(batchCmd)
}

type batchDataset struct {
	Queries []domain.AskRequest `yaml:"queries"`
}

// batchLine is one JSON line of batch output.
type batchLine struct {
	Index    int                 `json:"index"`
	Query    string              `json:"query"`
	Response *domain.AskResponse `json:"response,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func readDataset(path string) ([]domain.AskRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var ds batchDataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(ds.Queries) == 0 {
		return nil, fmt.Errorf("%s: %w: no queries", path, domain.ErrInvalidInput)
	}
	return ds.Queries, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchService == nil {
		return errNotConfigured("batch")
	}

	reqs, err := readDataset(args[0])
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", batchOutput, err)
		}
		defer f.Close()
		out = f
	}
	if batchQuiet && batchOutput == "" {
		out = io.Discard
	}

	enc := json.NewEncoder(out)
	var writeErr error
	results, runErr := batchService.Run(commandContext(cmd), reqs, func(r driving.BatchResult) {
		line := batchLine{Index: r.Index, Query: reqs[r.Index].Query, Response: r.Response}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		if err := enc.Encode(line); err != nil && writeErr == nil {
			writeErr = err
		}
	})

	var answered, fallback, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Response == nil:
			// Not started before the batch stopped.
		case r.Response.UseRAG:
			answered++
		default:
			fallback++
		}
	}

	failedText := fmt.Sprintf("%d failed", failed)
	if failed > 0 {
		failedText = errorStyle.Render(failedText)
	}
	cmd.PrintErrf("%s %d queries: %d retrieved, %d fallback, %s\n",
		titleStyle.Render("Batch"), len(reqs), answered, fallback, failedText)

	return errors.Join(runErr, writeErr)
}
