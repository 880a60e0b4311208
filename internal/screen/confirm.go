package screen

import (
	"github.com/sirupsen/logrus"
)

// Prompt is a destructive-action confirmation.
type Prompt struct {
	Title        string `json:"title"`
	Message      string `json:"message"`
	ConfirmLabel string `json:"confirmLabel"`
	CancelLabel  string `json:"cancelLabel"`
}

// Confirmer asks the user to confirm a prompt. onConfirm runs only when the user
// confirms, possibly later and on another call stack; a cancel does nothing.
type Confirmer interface {
	Confirm(prompt Prompt, onConfirm func())
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(prompt Prompt, onConfirm func())

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(prompt Prompt, onConfirm func()) { f(prompt, onConfirm) }

// AutoConfirm answers every prompt immediately with answer.
func AutoConfirm(answer bool) Confirmer {
	return ConfirmerFunc(func(_ Prompt, onConfirm func()) {
		if answer {
			onConfirm()
		}
	})
}

// Reporter surfaces non-fatal problems (storage failures) to the user.
// Implementations must be safe for concurrent use.
type Reporter interface {
	Warn(title, message string)
}

// LogReporter writes warnings to a logger.
type LogReporter struct {
	Logger logrus.FieldLogger
}

// Warn implements Reporter.
func (r LogReporter) Warn(title, message string) {
	logger := r.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithField("title", title).Warn(message)
}
