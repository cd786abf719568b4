package server

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ConsoleMessage is one line of render output forwarded to the browser
type ConsoleMessage struct {
	RenderID  string    `json:"renderId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warning" or "error"
}

// ConsoleLogger implements core.Logger for a single render. Messages are
// copied to out (the server log) and offered to the console channel
// without ever blocking the renderer.
type ConsoleLogger struct {
	renderID    string
	out         io.Writer
	consoleChan chan<- ConsoleMessage
}

// NewConsoleLogger creates a logger for one render. out and consoleChan may be nil.
func NewConsoleLogger(renderID string, out io.Writer, consoleChan chan<- ConsoleMessage) *ConsoleLogger {
	return &ConsoleLogger{
		renderID:    renderID,
		out:         out,
		consoleChan: consoleChan,
	}
}

// Printf implements core.Logger
func (cl *ConsoleLogger) Printf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	if cl.out != nil {
		fmt.Fprintf(cl.out, "[%s] %s", cl.renderID, message)
	}

	if cl.consoleChan == nil {
		return
	}
	select {
	case cl.consoleChan <- ConsoleMessage{
		RenderID:  cl.renderID,
		Message:   message,
		Timestamp: time.Now(),
		Level:     messageLevel(message),
	}:
	default:
		// dropped, the browser is behind
	}
}

// messageLevel classifies a log line by its prefix
func messageLevel(message string) string {
	upper := strings.ToUpper(strings.TrimSpace(message))
	switch {
	case strings.HasPrefix(upper, "WARNING"):
		return "warning"
	case strings.HasPrefix(upper, "ERROR"):
		return "error"
	default:
		return "info"
	}
}
