package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jpalmerr/agentpulse"
)

const ellipsis = "…"

// viewState is everything render needs, captured once per frame.
type viewState struct {
	endpoint string
	snap     agentpulse.Snapshot
	spinner  string
	styles   Styles
	width    int
	now      time.Time
}

func render(v viewState) string {
	sections := []string{renderHeader(v)}

	if v.snap.IsStale && v.snap.LastError != nil {
		sections = append(sections, renderError(v))
	}

	if v.snap.IsLoading {
		sections = append(sections, "", v.styles.Muted.Render("waiting for first poll"))
	} else {
		sections = append(sections, "", renderTable(v), "", renderSummary(v))
	}

	sections = append(sections, "", v.styles.Muted.Render("q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderHeader(v viewState) string {
	parts := []string{
		v.styles.Title.Render("AgentPulse"),
		v.styles.Muted.Render(v.endpoint),
		renderBadge(v),
	}
	if !v.snap.UpdatedAt.IsZero() {
		parts = append(parts, v.styles.Muted.Render("updated "+formatAge(v.now, v.snap.UpdatedAt)+" ago"))
	}
	return strings.Join(parts, "  ")
}

func renderBadge(v viewState) string {
	switch v.snap.Phase {
	case agentpulse.PhaseLoading:
		return v.spinner + " loading"
	case agentpulse.PhaseStale:
		return v.styles.BadgeStale.Render("STALE")
	case agentpulse.PhaseStopped:
		return v.styles.BadgeStopped.Render("STOPPED")
	default:
		return v.styles.BadgeLive.Render("LIVE")
	}
}

func renderError(v viewState) string {
	line := "last error: " + v.snap.LastError.Error()
	if n := v.snap.ConsecutiveFailures; n > 1 {
		line += fmt.Sprintf(" (%d consecutive failures)", n)
	}
	return v.styles.Error.Render(truncate(line, tableWidth(v.width)))
}

func renderTable(v viewState) string {
	if len(v.snap.Entities) == 0 {
		return v.styles.Muted.Render("no agents reported")
	}

	cols := layoutColumns(v.width)
	gap := strings.Repeat(" ", columnGap)

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = v.styles.Header.Render(cell(c.Header, c.Width))
	}
	lines := []string{strings.Join(headers, gap)}

	for _, a := range v.snap.Entities {
		cells := make([]string, len(cols))
		for i, c := range cols {
			text := cell(columnValue(c.ID, a, v.now), c.Width)
			if c.ID == colState {
				text = v.styles.forState(a.State).Render(text)
			}
			cells[i] = text
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, gap), " "))
	}
	return strings.Join(lines, "\n")
}

func renderSummary(v viewState) string {
	states := []agentpulse.State{
		agentpulse.StateBusy,
		agentpulse.StateIdle,
		agentpulse.StateError,
		agentpulse.StateUnknown,
	}
	parts := make([]string, 0, len(states)+1)
	parts = append(parts, fmt.Sprintf("%d agents", len(v.snap.Entities)))
	for _, s := range states {
		parts = append(parts, v.styles.forState(s).Render(fmt.Sprintf("%s %d", s, v.snap.Count(s))))
	}
	return strings.Join(parts, "  ")
}

func columnValue(id columnID, a agentpulse.AgentStatus, now time.Time) string {
	switch id {
	case colName:
		return a.Name
	case colState:
		return a.State.String()
	case colLastTask:
		return oneLine(a.LastTask)
	case colAge:
		if a.LastTaskTime.IsZero() {
			return "-"
		}
		return formatAge(now, a.LastTaskTime)
	case colTasks:
		return strconv.FormatInt(a.TasksCompleted, 10)
	case colSuccess:
		return formatPercent(a.SuccessRate)
	default:
		return ""
	}
}

// cell truncates s to width display columns and pads it to exactly width.
func cell(s string, width int) string {
	return runewidth.FillRight(truncate(s, width), width)
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, ellipsis)
}

func tableWidth(width int) int {
	if width <= 0 {
		return defaultTableWidth
	}
	return width
}

// oneLine collapses whitespace so multi-line task text fits one row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// formatAge renders the time since t in its largest whole unit.
func formatAge(now, t time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return strconv.Itoa(int(d/time.Second)) + "s"
	case d < time.Hour:
		return strconv.Itoa(int(d/time.Minute)) + "m"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	default:
		return strconv.Itoa(int(d/(24*time.Hour))) + "d"
	}
}

func formatPercent(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', 0, 64) + "%"
}
