package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/procrag/internal/core/domain"
)

// --- Test helpers ---

const (
	travelDef  = "def_travel"
	travelProc = "proc_travel"
)

// travelProcess is a small travel request process:
//
//	start -> submit -> gw -ja-> book -> end
//	                     \-nein-> fix -> submit
func travelProcess() domain.ProcessImport {
	return domain.ProcessImport{
		ID:   travelProc,
		Name: "Dienstreise",
		Nodes: []domain.Node{
			{ID: "start", Name: "Start", Kind: domain.NodeKindStartEvent},
			{ID: "submit", Name: "Antrag einreichen", Kind: domain.NodeKindUserTask},
			{ID: "gw", Name: "Antrag vollständig?", Kind: domain.NodeKindExclusiveGateway},
			{ID: "check", Name: "Antrag prüfen", Kind: domain.NodeKindUserTask},
			{ID: "book", Name: "Reise buchen", Kind: domain.NodeKindServiceTask},
			{ID: "fix", Name: "Antrag korrigieren", Kind: domain.NodeKindUserTask},
			{ID: "end", Name: "Ende", Kind: domain.NodeKindEndEvent},
		},
		Flows: []domain.Flow{
			{ID: "f1", SourceID: "start", TargetID: "submit"},
			{ID: "f2", SourceID: "submit", TargetID: "gw"},
			{ID: "f3", SourceID: "gw", TargetID: "book", Name: "ja"},
			{ID: "f4", SourceID: "gw", TargetID: "fix", Name: "nein"},
			{ID: "f5", SourceID: "fix", TargetID: "submit"},
			{ID: "f6", SourceID: "book", TargetID: "check"},
			{ID: "f7", SourceID: "check", TargetID: "end"},
		},
		Lanes: []domain.Lane{
			{ID: "lane_emp", Name: "Mitarbeiter", NodeIDs: []string{"start", "submit", "fix"}},
			{ID: "lane_admin", Name: "Reisekostenstelle", NodeIDs: []string{"check", "book"}},
		},
	}
}

type travelEnv struct {
	graphs     *memory.GraphStore
	store      *memory.WhitelistStore
	whitelists *WhitelistService
}

// newTravelEnv imports the travel process with one default whitelist per lane.
func newTravelEnv(t *testing.T) *travelEnv {
	t.Helper()
	ctx := context.Background()

	graphs := memory.NewGraphStore()
	require.NoError(t, graphs.SaveDefinition(ctx,
		domain.Definition{ID: travelDef, Name: "Reisen"},
		[]domain.ProcessImport{travelProcess()}))

	store := memory.NewWhitelistStore(graphs)
	wl := NewWhitelistService(store, graphs)
	_, err := wl.CreateDefaults(ctx, travelDef)
	require.NoError(t, err)

	return &travelEnv{graphs: graphs, store: store, whitelists: wl}
}
