package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhitelist_Validate(t *testing.T) {
	tests := []struct {
		name    string
		wl      Whitelist
		wantErr bool
	}{
		{name: "valid", wl: Whitelist{ID: "wl1", ProcessID: "P1"}},
		{name: "missing id", wl: Whitelist{ProcessID: "P1"}, wantErr: true},
		{name: "missing process", wl: Whitelist{ID: "wl1"}, wantErr: true},
		{name: "blank id", wl: Whitelist{ID: "  ", ProcessID: "P1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wl.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWhitelist_Normalized(t *testing.T) {
	wl := Whitelist{
		ID:         "wl1",
		ProcessID:  "P1",
		AllowNodes: []string{"a", " b ", "a", ""},
	}
	n := wl.Normalized()
	assert.Equal(t, []string{"a", "b"}, n.AllowNodes)
	assert.NotNil(t, n.AllowLanes)
	assert.Empty(t, n.AllowLanes)
	assert.NotNil(t, n.Principals)
}

func TestAllowedSet(t *testing.T) {
	s := NewAllowedSet()
	assert.True(t, s.Empty())
	assert.True(t, s.HasType("userTask"), "empty type set permits all kinds")

	s.NodeIDs["n2"] = struct{}{}
	s.NodeIDs["n1"] = struct{}{}
	s.LaneIDs["l1"] = struct{}{}
	s.Types["userTask"] = struct{}{}

	assert.False(t, s.Empty())
	assert.True(t, s.HasNode("n1"))
	assert.False(t, s.HasNode("n3"))
	assert.True(t, s.HasLane("l1"))
	assert.True(t, s.HasType("userTask"))
	assert.False(t, s.HasType("serviceTask"))
	assert.Equal(t, []string{"n1", "n2"}, s.SortedNodeIDs())
	assert.Equal(t, []string{"l1"}, s.SortedLaneIDs())
	assert.Equal(t, []string{"userTask"}, s.SortedTypes())
}
