// Package debug is the single tracing facade the core writes through.
// spec.md §7 requires that the core never write to stdout/stderr
// directly; every component logs here instead, and main wires the
// output (or silences it in MCP stdio mode, where any stray byte on
// stdout corrupts the JSON-RPC stream).
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// EnableDebug is a build-time flag:
// go build -ldflags "-X github.com/standardbeagle/lci/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode suppresses all debug output to stdio; set by
// mcpserver.Server.Run before the MCP stdio transport starts.
var MCPMode = false

var (
	mu     sync.Mutex
	output io.Writer
)

// SetMCPMode enables or disables MCP stdio suppression.
func SetMCPMode(enabled bool) { MCPMode = enabled }

// SetOutput sets the writer debug output is sent to. Pass nil to disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Enabled reports whether tracing is active.
func Enabled() bool {
	if MCPMode && toStdio() {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// toStdio reports whether debug output currently goes to stdout or stderr.
func toStdio() bool {
	w := writer()
	return w == io.Writer(os.Stdout) || w == io.Writer(os.Stderr)
}

// Log writes a component-tagged trace line, e.g. Log("INDEX", "scanned %d files", n).
func Log(component, format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

// LogIndexing traces the workspace indexer (Component G).
func LogIndexing(format string, args ...interface{}) { Log("INDEX", format, args...) }

// LogParse traces the parser cache and query engine (Components B/C).
func LogParse(format string, args ...interface{}) { Log("PARSE", format, args...) }

// LogScope traces the scope resolver (Component D).
func LogScope(format string, args ...interface{}) { Log("SCOPE", format, args...) }

// LogGraph traces the incremental graph (Component F).
func LogGraph(format string, args ...interface{}) { Log("GRAPH", format, args...) }

// LogMCP traces the wire-surface layer.
func LogMCP(format string, args ...interface{}) { Log("MCP", format, args...) }

// Internal records a condition the core believed impossible. It never
// panics and never exits; callers still return a typed error to the
// caller (internal/errors.NewInternalError).
func Internal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if MCPMode && toStdio() {
		return
	}
	w := writer()
	if w != nil {
		fmt.Fprintf(w, "[INTERNAL] %s\n", msg)
	}
}
