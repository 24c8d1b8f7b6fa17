package cli

import (
	"fmt"
	"strings"

	models "writeflow/internal/domain/models/workspace"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
)

var (
	folderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	statusStyles = map[models.Status]lipgloss.Style{
		models.StatusBrainstorming: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.StatusWriting:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		models.StatusCompleted:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	activeStyle = lipgloss.NewStyle().
			Underline(true)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1)
)

// renderTree draws the workspace with one color per status
func renderTree(roots []*models.TreeNode, activeID *string) string {
	if len(roots) == 0 {
		return dimStyle.Render("(empty workspace)")
	}

	t := tree.New().
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(dimStyle)
	for _, n := range roots {
		t.Child(treeChild(n, activeID))
	}
	return t.String()
}

func treeChild(n *models.TreeNode, activeID *string) any {
	if n.Type == models.NodeTypeFolder {
		sub := tree.Root(folderStyle.Render(n.Name + "/")).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(dimStyle)
		for _, c := range n.Children {
			sub.Child(treeChild(c, activeID))
		}
		return sub
	}
	return fileLabel(n, activeID)
}

func fileLabel(n *models.TreeNode, activeID *string) string {
	style := statusStyles[models.StatusBrainstorming]
	words := 0
	if n.Metadata != nil {
		if s, ok := statusStyles[n.Metadata.Status]; ok {
			style = s
		}
		words = n.Metadata.WordCount
	}
	if activeID != nil && *activeID == n.ID {
		style = style.Inherit(activeStyle)
	}

	label := style.Render(n.Name)
	detail := fmt.Sprintf("%d words", words)
	if n.Metadata != nil && n.Metadata.TargetWordCount != nil {
		detail = fmt.Sprintf("%d/%d words", words, *n.Metadata.TargetWordCount)
	}
	return label + " " + dimStyle.Render(detail)
}

// progressBar renders pct (0-100) as a fixed-width bar
func progressBar(pct, width int) string {
	filled := pct * width / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func formatGoal(name string, g *models.Goal) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(name))
	b.WriteString("\n")

	fmt.Fprintf(&b, "  Words:    %d\n", g.WordCount)
	if g.Target != nil {
		fmt.Fprintf(&b, "  Target:   %d %s %d%%\n", *g.Target, progressBar(g.Progress, 20), g.Progress)
	}
	if g.DaysLeft != nil {
		switch {
		case g.Overdue:
			fmt.Fprintf(&b, "  Deadline: %d days overdue\n", -*g.DaysLeft)
		default:
			fmt.Fprintf(&b, "  Deadline: %d days left\n", *g.DaysLeft)
		}
	}
	fmt.Fprintf(&b, "  Reading:  ~%d min\n", g.ReadingMinutes)
	return b.String()
}

func formatStats(s *models.Stats) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Workspace"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Files:   %d\n", s.Files)
	fmt.Fprintf(&b, "  Folders: %d\n", s.Folders)
	fmt.Fprintf(&b, "  Words:   %d\n", s.TotalWords)
	for _, status := range models.Statuses {
		fmt.Fprintf(&b, "  %-14s %d\n", statusStyles[status].Render(string(status)+":"), s.ByStatus[status])
	}
	return b.String()
}
