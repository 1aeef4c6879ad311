package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Whitelist is a named set of permitted nodes, lanes and node kinds, scoped
// to exactly one process and bound to zero or more principals (roles).
type Whitelist struct {
	// ID uniquely identifies the whitelist.
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable label.
	Name string `json:"name" yaml:"name"`

	// ProcessID is the single process this whitelist applies to.
	ProcessID string `json:"process_id" yaml:"process_id"`

	// AllowNodes lists directly permitted node ids.
	AllowNodes []string `json:"allow_nodes" yaml:"allow_nodes"`

	// AllowLanes lists permitted lanes. Every node a lane directly contains is permitted.
	AllowLanes []string `json:"allow_lanes" yaml:"allow_lanes"`

	// AllowTypes restricts next-step suggestions to these node kinds. Empty means any kind.
	AllowTypes []string `json:"allow_types" yaml:"allow_types"`

	// Principals lists the role identifiers bound to this whitelist.
	Principals []string `json:"principals" yaml:"principals"`
}

// Validate checks the whitelist is well-formed.
func (w Whitelist) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("%w: whitelist id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(w.ProcessID) == "" {
		return fmt.Errorf("%w: whitelist %q has no process scope", ErrInvalidInput, w.ID)
	}
	return nil
}

// Normalized returns a copy with nil slices replaced, blanks dropped and
// duplicates removed. Order of first occurrence is kept.
func (w Whitelist) Normalized() Whitelist {
	w.AllowNodes = dedupe(w.AllowNodes)
	w.AllowLanes = dedupe(w.AllowLanes)
	w.AllowTypes = dedupe(w.AllowTypes)
	w.Principals = dedupe(w.Principals)
	return w
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// WhitelistGrant is what a single whitelist permits inside its process, with
// lane containment already resolved.
type WhitelistGrant struct {
	// Types are the permitted node kinds.
	Types []string

	// Direct are node ids listed on the whitelist itself.
	Direct []string

	// ViaLanes are node ids contained in permitted lanes.
	ViaLanes []string

	// Lanes are the permitted lane ids.
	Lanes []string
}

// AllowedSet is a union of permissions across whitelists.
type AllowedSet struct {
	NodeIDs map[string]struct{}
	LaneIDs map[string]struct{}
	Types   map[string]struct{}
}

// NewAllowedSet returns an empty set.
func NewAllowedSet() AllowedSet {
	return AllowedSet{
		NodeIDs: make(map[string]struct{}),
		LaneIDs: make(map[string]struct{}),
		Types:   make(map[string]struct{}),
	}
}

// HasNode reports whether the node id is permitted.
func (a AllowedSet) HasNode(id string) bool {
	_, ok := a.NodeIDs[id]
	return ok
}

// HasLane reports whether the lane id is permitted.
func (a AllowedSet) HasLane(id string) bool {
	_, ok := a.LaneIDs[id]
	return ok
}

// HasType reports whether the kind is permitted. An empty type set permits all kinds.
func (a AllowedSet) HasType(kind string) bool {
	if len(a.Types) == 0 {
		return true
	}
	_, ok := a.Types[kind]
	return ok
}

// Empty reports whether neither nodes nor lanes are permitted.
func (a AllowedSet) Empty() bool {
	return len(a.NodeIDs) == 0 && len(a.LaneIDs) == 0
}

// SortedNodeIDs returns the node ids in ascending order.
func (a AllowedSet) SortedNodeIDs() []string {
	return sortedKeys(a.NodeIDs)
}

// SortedLaneIDs returns the lane ids in ascending order.
func (a AllowedSet) SortedLaneIDs() []string {
	return sortedKeys(a.LaneIDs)
}

// SortedTypes returns the permitted kinds in ascending order.
func (a AllowedSet) SortedTypes() []string {
	return sortedKeys(a.Types)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// ReachableNode is a permitted node found by a bounded forward path search.
type ReachableNode struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Kind NodeKind `json:"type"`
	Hops int      `json:"hops"`
}

// PrincipalGrant is the role-based aggregate for a definition.
type PrincipalGrant struct {
	NodeIDs []string `json:"node_ids"`
	LaneIDs []string `json:"lane_ids"`
}

// DefaultWhitelistResult reports what default whitelist generation produced.
type DefaultWhitelistResult struct {
	Whitelists int `json:"whitelists"`
	Lanes      int `json:"lanes"`
}
