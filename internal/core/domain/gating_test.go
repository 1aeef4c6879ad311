package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatingMode_IsValid(t *testing.T) {
	assert.True(t, GatingModeNone.IsValid())
	assert.True(t, GatingModeProcessContext.IsValid())
	assert.True(t, GatingModeEnabled.IsValid())
	assert.False(t, GatingMode("ablation").IsValid())
}

// TestGatingMetadata_Map tests the counters reported per context type
func TestGatingMetadata_Map(t *testing.T) {
	none := GatingMetadata{ContextType: "none"}.Map()
	assert.Equal(t, map[string]any{"context_type": "none"}, none)

	overview := GatingMetadata{ContextType: "overview", NumLanes: 2, NumDecisions: 1, NumSteps: 7}.Map()
	assert.Equal(t, 2, overview["num_lanes"])
	assert.Equal(t, 1, overview["num_decisions"])
	assert.Equal(t, 7, overview["num_steps"])
	assert.NotContains(t, overview, "num_successors")

	gating := GatingMetadata{ContextType: "gating", NumSuccessors: 3, CurrentNode: "Submit"}.Map()
	assert.Equal(t, 3, gating["num_successors"])
	assert.Equal(t, "Submit", gating["current_node"])
	assert.Nil(t, gating["current_lane"])
	assert.Contains(t, gating, "current_lane")
}

func TestGatingMetadata_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(GatingMetadata{ContextType: "overview", NumLanes: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"context_type":"overview","num_lanes":1,"num_decisions":0,"num_steps":0}`, string(b))
}

func TestGatingContext_Detail(t *testing.T) {
	var nilCtx *GatingContext
	assert.Nil(t, nilCtx.Detail())
	assert.Nil(t, (&GatingContext{Mode: GatingModeNone}).Detail())

	cur := Node{ID: "submit", Name: "Submit", LaneName: "Employee"}
	ctx := &GatingContext{
		Mode: GatingModeEnabled,
		Position: &LocalPosition{
			Current: &cur,
			Successors: []Node{
				{ID: "gw", Name: "OK?", Kind: NodeKindExclusiveGateway, Branches: []Branch{{TargetName: "Book", ConditionName: "yes"}}},
				{ID: "t", Kind: NodeKindUserTask},
			},
		},
	}
	d := ctx.Detail()
	require.NotNil(t, d)
	assert.Equal(t, "Submit", d.Current)
	assert.Equal(t, "Employee", d.CurrentLane)
	require.Len(t, d.Successors, 2)
	assert.Equal(t, "decision 'OK?': If 'yes': → Book", d.Successors[0].Description)
	assert.Equal(t, "t", d.Successors[1].Name)
	assert.Equal(t, 1, ctx.Position.NumGateways())
}

func TestProcessOverview_NumSteps(t *testing.T) {
	o := &ProcessOverview{
		LanesWithTasks:   []LaneTasks{{Nodes: []Node{{ID: "a"}, {ID: "b"}}}, {Nodes: []Node{{ID: "c"}}}},
		NodesWithoutLane: []Node{{ID: "d"}},
	}
	assert.Equal(t, 4, o.NumSteps())
}

func TestLabelSet_Names(t *testing.T) {
	l := LabelSet{
		Lanes: []Lane{{ID: "l1", Name: "Employee"}, {ID: "l2"}},
		Tasks: []Node{{ID: "t1", Name: "Submit"}, {ID: "t2"}},
	}
	assert.Equal(t, []string{"Employee"}, l.LaneNames())
	assert.Equal(t, []string{"Submit"}, l.TaskNames())
}
