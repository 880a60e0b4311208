package tui

import tea "github.com/charmbracelet/bubbletea"

// warningMsg carries a storage warning raised by a screen.
type warningMsg struct {
	title   string
	message string
}

// Reporter forwards screen warnings into the program's update loop. Writes settle on
// background goroutines, so warnings are queued on a channel and drained by a command.
type Reporter struct {
	ch chan warningMsg
}

// NewReporter returns a Reporter buffering up to size warnings; later ones are dropped
// until the loop catches up.
func NewReporter(size int) *Reporter {
	if size <= 0 {
		size = 16
	}
	return &Reporter{ch: make(chan warningMsg, size)}
}

// Warn implements screen.Reporter.
func (r *Reporter) Warn(title, message string) {
	select {
	case r.ch <- warningMsg{title: title, message: message}:
	default:
	}
}

func (r *Reporter) listen() tea.Cmd {
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		return <-r.ch
	}
}
