package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

// gatingHint renders the local, role-filtered context. Each fragment is
// added only when its data is present.
func gatingHint(gc *domain.GatingContext, labels *domain.LabelSet) string {
	var parts []string

	if gc.ProcessName != "" {
		parts = append(parts, fmt.Sprintf("You are answering in the context of the process '%s'.", gc.ProcessName))
	}
	if len(gc.Roles) > 0 {
		parts = append(parts, fmt.Sprintf("User role(s): %s.", strings.Join(gc.Roles, ", ")))
	}

	if labels != nil {
		if lanes := labels.LaneNames(); len(lanes) > 0 {
			parts = append(parts, fmt.Sprintf("Only answer about steps assigned to these lanes: %s.", strings.Join(lanes, ", ")))
		}
		if tasks := labels.TaskNames(); len(tasks) > 0 {
			suffix := ""
			if len(tasks) > domain.MaxHintTasks {
				suffix = fmt.Sprintf(" (and %d more)", len(tasks)-domain.MaxHintTasks)
				tasks = tasks[:domain.MaxHintTasks]
			}
			parts = append(parts, fmt.Sprintf("Focus in particular on these tasks: %s%s.", strings.Join(tasks, ", "), suffix))
		}
	}

	if pos := gc.Position; pos != nil && pos.Current != nil {
		parts = append(parts, positionSentence(pos))
		parts = append(parts, "Answer from the perspective of this step. "+
			"At decision points, explain the possible paths and their conditions.")
		if len(pos.AllowedLanes) > 0 || len(pos.AllowedNodes) > 0 {
			parts = append(parts, "Focus on the tasks of the user's role. "+
				"Mention steps of other roles only when they are directly relevant.")
		}
	}

	return strings.Join(parts, "\n")
}

func positionSentence(pos *domain.LocalPosition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user is currently at step '%s'", pos.Current.DisplayName())
	if pos.Current.LaneName != "" {
		fmt.Fprintf(&b, " (lane: %s)", pos.Current.LaneName)
	}
	b.WriteString(".")

	if len(pos.Predecessors) > 0 {
		names := make([]string, len(pos.Predecessors))
		for i, n := range pos.Predecessors {
			names[i] = n.DisplayName()
		}
		fmt.Fprintf(&b, " Previous steps: %s.", strings.Join(names, ", "))
	}
	if len(pos.Successors) > 0 {
		descs := make([]string, len(pos.Successors))
		for i, n := range pos.Successors {
			descs[i] = n.Describe()
		}
		fmt.Fprintf(&b, " Possible next steps: %s.", strings.Join(descs, ", "))
	}
	return b.String()
}

// overviewHint renders the full, unfiltered process inventory.
func overviewHint(gc *domain.GatingContext) string {
	ov := gc.Overview
	if ov == nil || (len(ov.LanesWithTasks) == 0 && len(ov.NodesWithoutLane) == 0) {
		if gc.ProcessName == "" {
			return ""
		}
		return fmt.Sprintf("The question refers to the process '%s'.", gc.ProcessName)
	}

	var parts []string
	if ov.ProcessName != "" {
		parts = append(parts, fmt.Sprintf("## Process: %s", ov.ProcessName))
	}
	if len(gc.Roles) > 0 {
		parts = append(parts, fmt.Sprintf("User role(s): %s.", strings.Join(gc.Roles, ", ")))
	}

	if len(ov.LanesWithTasks) > 0 {
		parts = append(parts, "\n### Roles and their tasks:")
		for _, lt := range ov.LanesWithTasks {
			if len(lt.Nodes) == 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("- **%s**: %s", laneDisplay(lt.Lane), taskList(lt.Nodes)))
		}
	}

	if len(ov.NodesWithoutLane) > 0 {
		nodes := ov.NodesWithoutLane
		if len(nodes) > domain.MaxOverviewUnassigned {
			nodes = nodes[:domain.MaxOverviewUnassigned]
		}
		parts = append(parts, "\n### Steps without a lane:", taskList(nodes))
	}

	if len(ov.Flows) > 0 {
		flows := make([]string, len(ov.Flows))
		for i, f := range ov.Flows {
			if f.Condition != "" {
				flows[i] = fmt.Sprintf("'%s' → '%s' (if: %s)", f.From, f.To, f.Condition)
			} else {
				flows[i] = fmt.Sprintf("'%s' → '%s'", f.From, f.To)
			}
		}
		parts = append(parts, "\n### Process flow:", strings.Join(flows, "; "))
	}

	if len(ov.Gateways) > 0 {
		parts = append(parts, "\n### Decision points:")
		for _, gw := range ov.Gateways {
			head := fmt.Sprintf("- **%s** (%s)", gw.DisplayName(), gw.Kind.GatewayLabel())
			if len(gw.Branches) == 0 {
				parts = append(parts, head)
				continue
			}
			branches := make([]string, len(gw.Branches))
			for i, b := range gw.Branches {
				branches[i] = b.Describe()
			}
			parts = append(parts, head+": "+strings.Join(branches, "; "))
		}
	}

	parts = append(parts, "\nAnswer based on the documents and the whole process context. "+
		"You may describe every aspect of the process, its roles and its steps.")
	return strings.Join(parts, "\n")
}

func laneDisplay(l domain.Lane) string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}

func taskList(nodes []domain.Node) string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		if hint := n.Kind.TypeHint(); hint != "" {
			out[i] = fmt.Sprintf("'%s' (%s)", n.DisplayName(), hint)
		} else {
			out[i] = fmt.Sprintf("'%s'", n.DisplayName())
		}
	}
	return strings.Join(out, ", ")
}
