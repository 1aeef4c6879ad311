package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNodeKind(t *testing.T) {
	tests := []struct {
		in       string
		expected NodeKind
		category NodeCategory
	}{
		{"userTask", NodeKindUserTask, CategoryTask},
		{"callActivity", NodeKindCallActivity, CategoryTask},
		{"exclusiveGateway", NodeKindExclusiveGateway, CategoryGateway},
		{"eventBasedGateway", NodeKindEventBasedGateway, CategoryGateway},
		{"boundaryEvent", NodeKindBoundaryEvent, CategoryEvent},
		{"dataObject", NodeKindUnknown, CategoryUnknown},
		{"", NodeKindUnknown, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k := ParseNodeKind(tt.in)
			assert.Equal(t, tt.expected, k)
			assert.Equal(t, tt.category, k.Category())
		})
	}
}

// TestNodeKind_GatewayLabel tests the human-readable gateway labels
func TestNodeKind_GatewayLabel(t *testing.T) {
	assert.Equal(t, "decision", NodeKindExclusiveGateway.GatewayLabel())
	assert.Equal(t, "parallel execution", NodeKindParallelGateway.GatewayLabel())
	assert.Equal(t, "optional branch", NodeKindInclusiveGateway.GatewayLabel())
	assert.Equal(t, "event-based branch", NodeKindEventBasedGateway.GatewayLabel())
	assert.Empty(t, NodeKindUserTask.GatewayLabel())
}

func TestNodeKind_TypeHint(t *testing.T) {
	assert.Equal(t, "manual task", NodeKindUserTask.TypeHint())
	assert.Equal(t, "automated", NodeKindServiceTask.TypeHint())
	assert.Equal(t, "decision", NodeKindExclusiveGateway.TypeHint())
	assert.Empty(t, NodeKindSendTask.TypeHint())
}

func TestNodeCategory_String(t *testing.T) {
	assert.Equal(t, "task", CategoryTask.String())
	assert.Equal(t, "gateway", CategoryGateway.String())
	assert.Equal(t, "event", CategoryEvent.String())
	assert.Equal(t, "unknown", CategoryUnknown.String())
}

// TestBranch_Describe tests the priority of condition name over expression
func TestBranch_Describe(t *testing.T) {
	tests := []struct {
		name     string
		branch   Branch
		expected string
	}{
		{
			name:     "condition name wins",
			branch:   Branch{TargetName: "Book travel", Condition: "${approved}", ConditionName: "approved"},
			expected: "If 'approved': → Book travel",
		},
		{
			name:     "raw condition",
			branch:   Branch{TargetName: "Book travel", Condition: "${approved}"},
			expected: "If ${approved}: → Book travel",
		},
		{
			name:     "bare arrow",
			branch:   Branch{TargetName: "Book travel"},
			expected: "→ Book travel",
		},
		{
			name:     "falls back to target id",
			branch:   Branch{TargetID: "Task_1"},
			expected: "→ Task_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.branch.Describe())
		})
	}
}

func TestNode_Describe(t *testing.T) {
	task := Node{ID: "T1", Kind: NodeKindUserTask}
	assert.Equal(t, "T1", task.Describe())

	gw := Node{
		ID:   "G1",
		Name: "Approved?",
		Kind: NodeKindExclusiveGateway,
		Branches: []Branch{
			{TargetName: "Book", ConditionName: "yes"},
			{TargetName: "Reject", ConditionName: "no"},
		},
	}
	assert.Equal(t, "decision 'Approved?': If 'yes': → Book; If 'no': → Reject", gw.Describe())

	gw.Branches = nil
	assert.Equal(t, "decision 'Approved?'", gw.Describe())
}
