package ux

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wavectl/wavectl/internal/modelgraph"
	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/task"
	"github.com/wavectl/wavectl/internal/verify"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true)

	verifierStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5"))
)

// RenderPlanSummary renders the wave plan for the terminal.
func RenderPlanSummary(p *plan.Plan) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Execution plan, phase %s", p.PhaseID)))
	b.WriteString("\n")

	for _, w := range p.Waves {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("Wave %d (%s)", w.Number, w.Strategy)))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("  " + w.Rationale))
		b.WriteString("\n")
		for _, t := range w.Tasks {
			line := fmt.Sprintf("  %s  %s", t.ID, truncate(t.Instruction, 70))
			if t.Role == task.RoleVerifier {
				line = verifierStyle.Render(line)
			}
			b.WriteString(line)
			if len(t.FileLocks) > 0 {
				b.WriteString(labelStyle.Render("  [" + strings.Join(t.FileLocks, ", ") + "]"))
			}
			b.WriteString("\n")
		}
		if w.Checkpoint.Enabled {
			b.WriteString(labelStyle.Render("  checkpoint: " + w.Checkpoint.Criteria))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderVerifyResult renders a verification outcome for the terminal.
func RenderVerifyResult(res *verify.Result) string {
	var b strings.Builder

	status := passStyle.Render(string(res.Status))
	if res.Status != verify.StatusPass {
		status = failStyle.Render(string(res.Status))
	}
	b.WriteString(fmt.Sprintf("%s %s\n", titleStyle.Render(res.VerifyID), status))

	if res.TierUsed > 0 {
		tier := res.Tier1
		if res.TierUsed == 2 {
			tier = res.Tier2
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("  tier %d (%s), %d iteration(s), $%.3f, %.1fs",
			res.TierUsed, tier.Model, tier.Iterations, tier.CostUSD, tier.Duration.Seconds())))
		b.WriteString("\n")
	}

	if len(res.Placeholders) > 0 {
		b.WriteString(failStyle.Render(fmt.Sprintf("  %d placeholder violation(s)", len(res.Placeholders))))
		b.WriteString("\n")
		for _, v := range res.Placeholders {
			b.WriteString(fmt.Sprintf("    %s:%d  %s\n", v.File, v.Line, v.Text))
		}
	}

	if res.Radius != nil && res.Radius.Exceeded {
		b.WriteString(failStyle.Render("  change radius exceeded: " + strings.Join(res.Radius.Violations, ", ")))
		b.WriteString("\n")
	}

	if res.HaltWave {
		b.WriteString(failStyle.Render("  wave halted: " + res.Reason))
		b.WriteString("\n")
	}

	b.WriteString(labelStyle.Render("  manifest: " + verify.ManifestDir(res.VerifyID)))
	b.WriteString("\n")
	return b.String()
}

// RenderModelGraph renders the model dependency graph grouped by level.
func RenderModelGraph(g *modelgraph.Graph) string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	levels := modelgraph.AssignLevels(g, names)

	byLevel := make(map[int][]string)
	maxLevel := 0
	for name, lvl := range levels {
		byLevel[lvl] = append(byLevel[lvl], name)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Model graph, %d node(s)", len(g.Nodes))))
	b.WriteString("\n")

	for lvl := 1; lvl <= maxLevel; lvl++ {
		nodes := byLevel[lvl]
		if len(nodes) == 0 {
			continue
		}
		sort.Strings(nodes)
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("Level %d", lvl)))
		b.WriteString("\n")
		for _, name := range nodes {
			n := g.Nodes[name]
			b.WriteString(fmt.Sprintf("  %s (%s)", name, n.Materialization))
			if len(n.Upstream) > 0 {
				ups := append([]string(nil), n.Upstream...)
				sort.Strings(ups)
				b.WriteString(labelStyle.Render("  <- " + strings.Join(ups, ", ")))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
