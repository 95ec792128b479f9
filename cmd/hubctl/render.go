package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"projecthub/client"
	"projecthub/normalize"
)

var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorDim    = lipgloss.Color("#928374")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBox    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorDim).Padding(0, 1)
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case normalize.TaskDone, normalize.ProjectCompleted:
		return StyleGreen
	case normalize.TaskInProgress, normalize.ProjectInProgress:
		return StyleYellow
	default:
		return StyleDim
	}
}

func priorityStyle(priority string) lipgloss.Style {
	switch priority {
	case normalize.PriorityHigh:
		return StyleRed
	case normalize.PriorityLow:
		return StyleDim
	default:
		return StyleBlue
	}
}

func renderUser(u normalize.User) string {
	return fmt.Sprintf("%s <%s> %s", u.Name, u.Email, StyleDim.Render("("+u.Role+")"))
}

func renderTaskLine(t normalize.Task) string {
	line := fmt.Sprintf("%s  %s  %s %s",
		statusStyle(t.Status).Render(fmt.Sprintf("%-11s", t.Status)),
		priorityStyle(t.Priority).Render(fmt.Sprintf("%-6s", t.Priority)),
		t.Title,
		StyleDim.Render(t.ID),
	)
	if t.AssignedTo != nil {
		line += StyleDim.Render(" @" + t.AssignedTo.Name)
	}
	if t.DueDate != nil {
		line += StyleDim.Render(" due " + t.DueDate.Format("2006-01-02"))
	}
	return line
}

// renderActions lists the commands or controls the user may use; empty when none.
func renderActions(actions []string) string {
	if len(actions) == 0 {
		return ""
	}
	return StyleBlue.Render("Actions: "+strings.Join(actions, ", ")) + "\n"
}

func renderWarnings(warnings []string) string {
	var b strings.Builder
	for _, w := range warnings {
		b.WriteString(StyleYellow.Render("! "+w) + "\n")
	}
	return b.String()
}

func renderDashboard(v *client.Dashboard) string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("Welcome, "+v.User.Name) + "\n\n")

	b.WriteString(StyleHeader.Render("Recent projects") + "\n")
	if len(v.RecentProjects) == 0 {
		b.WriteString(StyleDim.Render("  none") + "\n")
	}
	for _, p := range v.RecentProjects {
		fmt.Fprintf(&b, "  %s  %s %s\n", statusStyle(p.Status).Render(fmt.Sprintf("%-11s", p.Status)), p.Title, StyleDim.Render(p.ID))
	}

	b.WriteString("\n" + StyleHeader.Render("My tasks") + "\n")
	if len(v.MyTasks) == 0 {
		b.WriteString(StyleDim.Render("  none") + "\n")
	}
	for _, t := range v.MyTasks {
		b.WriteString("  " + renderTaskLine(t) + "\n")
	}

	if v.CanCreateProject {
		b.WriteString("\n" + renderActions([]string{"create project"}))
	}
	b.WriteString(renderWarnings(v.Warnings))
	return b.String()
}

func renderProjectList(v *client.ProjectListView) string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("Projects") + "\n")
	if len(v.Projects) == 0 {
		b.WriteString(StyleDim.Render("  none") + "\n")
	}
	for _, s := range v.Projects {
		fmt.Fprintf(&b, "  %s  %s %s %s\n",
			statusStyle(s.Project.Status).Render(fmt.Sprintf("%-11s", s.Project.Status)),
			s.Project.Title,
			StyleDim.Render(fmt.Sprintf("[%d tasks, %d members]", s.TaskCount, len(s.Project.Members))),
			StyleDim.Render(s.Project.ID),
		)
	}
	if v.CanCreate {
		b.WriteString(renderActions([]string{"create project"}))
	}
	b.WriteString(renderWarnings(v.Warnings))
	return b.String()
}

func renderProjectDetail(v *client.ProjectDetail) string {
	var b strings.Builder

	header := StyleHeader.Render(v.Project.Title) + "  " + statusStyle(v.Project.Status).Render(v.Project.Status)
	if v.Project.Description != "" {
		header += "\n" + v.Project.Description
	}
	header += "\n" + StyleDim.Render("created by "+v.Project.CreatedBy.Name)
	b.WriteString(StyleBox.Render(header) + "\n")

	names := make([]string, 0, len(v.Members))
	for _, m := range v.Members {
		names = append(names, m.Name)
	}
	b.WriteString(StyleHeader.Render("Members") + " ")
	if len(names) == 0 {
		b.WriteString(StyleDim.Render("none"))
	}
	b.WriteString(strings.Join(names, ", ") + "\n\n")

	b.WriteString(StyleHeader.Render("Tasks") + "\n")
	if len(v.Tasks) == 0 {
		b.WriteString(StyleDim.Render("  none") + "\n")
	}
	for _, item := range v.Tasks {
		line := "  " + renderTaskLine(item.Task)
		if item.Affordances.CanEdit {
			line += StyleBlue.Render("  [done]")
		}
		b.WriteString(line + "\n")
	}

	var actions []string
	if v.Affordances.CanEdit {
		actions = append(actions, "edit")
	}
	if v.Affordances.CanDelete {
		actions = append(actions, "delete")
	}
	if v.Affordances.CanManageMembers {
		actions = append(actions, "manage members")
	}
	if v.Affordances.CanAddTask {
		actions = append(actions, "add task")
	}
	b.WriteString(renderActions(actions))
	b.WriteString(renderWarnings(v.Warnings))
	return b.String()
}

func renderTaskDetail(v *client.TaskDetail) string {
	var b strings.Builder

	t := v.Task
	header := StyleHeader.Render(t.Title) + "  " + statusStyle(t.Status).Render(t.Status) +
		"  " + priorityStyle(t.Priority).Render(t.Priority)
	if t.Description != "" {
		header += "\n" + t.Description
	}
	projectTitle := t.Project.Title
	if v.Project != nil {
		projectTitle = v.Project.Title
	}
	header += "\n" + StyleDim.Render("project "+projectTitle)
	if t.AssignedTo != nil {
		header += StyleDim.Render(" · assigned to " + t.AssignedTo.Name)
	}
	if t.DueDate != nil {
		header += StyleDim.Render(" · due " + t.DueDate.Format("2006-01-02"))
	}
	b.WriteString(StyleBox.Render(header) + "\n")

	b.WriteString(StyleHeader.Render("Comments") + "\n")
	if len(v.Comments) == 0 {
		b.WriteString(StyleDim.Render("  none") + "\n")
	}
	for _, item := range v.Comments {
		fmt.Fprintf(&b, "  %s %s\n    %s\n",
			StyleBlue.Render(item.Comment.Author.Name),
			StyleDim.Render(item.Comment.Timestamp.Local().Format("2006-01-02 15:04")),
			item.Comment.Text,
		)
	}

	var actions []string
	if v.Affordances.CanEdit {
		actions = append(actions, "done")
	}
	if v.Affordances.CanDelete {
		actions = append(actions, "delete")
	}
	if v.Affordances.CanComment {
		actions = append(actions, "comment")
	}
	b.WriteString(renderActions(actions))
	b.WriteString(renderWarnings(v.Warnings))
	return b.String()
}
