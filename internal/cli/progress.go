package cli

import (
	"fmt"
	"strings"

	"bulkgen/internal/model"

	"github.com/charmbracelet/lipgloss"
)

var (
	progressDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	progressErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	progressMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	progressJobStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

// liveProgress renders run progress as a single rewritten terminal line,
// finalizing completed jobs onto their own lines.
type liveProgress struct {
	enabled bool
}

func (p liveProgress) Handle(ev model.ProgressEvent) {
	if !p.enabled {
		return
	}
	switch ev.Phase {
	case model.EventStarted:
		fmt.Printf("\r\033[2K%s", p.renderLine(ev, "generating"))
	case model.EventError:
		if ev.Attempt > 0 {
			fmt.Printf("\r\033[2K%s", p.renderLine(ev, fmt.Sprintf("attempt %d failed, retrying", ev.Attempt)))
		}
	case model.EventDone:
		fmt.Printf("\r\033[2K%s %s\n", progressDoneStyle.Render("done"), p.jobLabel(ev))
	case model.EventPaused:
		fmt.Printf("\r\033[2K%s at job boundary (%d/%d done)\n", progressErrStyle.Render("paused"), ev.JobIndex, ev.TotalJobs)
	case model.EventPausedOnError:
		fmt.Printf("\r\033[2K%s %s\n", progressErrStyle.Render("paused on error:"), ev.Message)
	case model.EventStopped:
		fmt.Printf("\r\033[2K%s\n", progressErrStyle.Render("stopped"))
	case model.EventCompleted:
		fmt.Printf("\r\033[2K%s all %d jobs finished\n", progressDoneStyle.Render("completed"), ev.TotalJobs)
	}
}

func (p liveProgress) renderLine(ev model.ProgressEvent, phase string) string {
	var b strings.Builder
	b.WriteString(progressMutedStyle.Render(fmt.Sprintf("[%d/%d]", ev.JobIndex+1, ev.TotalJobs)))
	b.WriteString(" ")
	b.WriteString(progressJobStyle.Render(p.jobLabel(ev)))
	b.WriteString(" ")
	b.WriteString(progressMutedStyle.Render(phase))
	return b.String()
}

func (p liveProgress) jobLabel(ev model.ProgressEvent) string {
	if ev.IterationIndex > 1 {
		return fmt.Sprintf("%s #%d", ev.CombinationText, ev.IterationIndex)
	}
	return ev.CombinationText
}
