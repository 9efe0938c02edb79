package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	ModelModule    = "adl"     // model extraction pipeline
	AssemblyModule = "adl_asm" // per-instruction operand assembly
	CLIModule      = "wrangle" // command-line wrapper
)

var root atomic.Value

func init() {
	root.Store(NewLogger(DiscardHandler()))
}

func ParseLevel(lvl string) (slog.Level, error) {
	switch strings.ToUpper(lvl) {
	case "MAX", "MAXVERBOSITY":
		return levelMaxVerbosity, nil
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "CRIT", "CRITICAL":
		return LevelCrit, nil
	default:
		return 0, fmt.Errorf("invalid level: %s", lvl)
	}
}

// InitLogger installs a text logger writing to w at the given level.
func InitLogger(w io.Writer, logLevel string) error {
	logLvl, err := ParseLevel(logLevel)
	if err != nil {
		return err
	}
	SetDefault(NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLvl})))
	return nil
}

// SetDefault sets the default global logger
func SetDefault(l Logger) {
	root.Store(l)
}

// Root returns the root logger
func Root() Logger {
	return root.Load().(Logger)
}

// --- Module management ---
// Debug and Trace output is only written for enabled modules; the other
// levels always go through.
var (
	modulesMu      sync.RWMutex
	moduleDisabled = map[string]bool{}
)

func EnableModule(module string) {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	delete(moduleDisabled, module)
}

func DisableModule(module string) {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	moduleDisabled[module] = true
}

// EnableModules takes a comma-separated list, as passed on a command line.
func EnableModules(list string) {
	for _, m := range strings.Split(list, ",") {
		if m = strings.TrimSpace(m); m != "" {
			EnableModule(m)
		}
	}
}

func isModuleEnabled(module string) bool {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	return !moduleDisabled[module]
}

// Trace logs a message at the trace level for a specific module.
func Trace(module string, msg string, ctx ...interface{}) {
	if !isModuleEnabled(module) {
		return
	}
	Root().Write(LevelTrace, module, msg, ctx...)
}

// Debug logs a message at the debug level for a specific module.
func Debug(module string, msg string, ctx ...interface{}) {
	if !isModuleEnabled(module) {
		return
	}
	Root().Write(slog.LevelDebug, module, msg, ctx...)
}

func Info(module string, msg string, ctx ...interface{}) {
	Root().Write(slog.LevelInfo, module, msg, ctx...)
}

func Warn(module string, msg string, ctx ...interface{}) {
	Root().Write(slog.LevelWarn, module, msg, ctx...)
}

func Error(module string, msg string, ctx ...interface{}) {
	Root().Write(slog.LevelError, module, msg, ctx...)
}

func New(ctx ...interface{}) Logger {
	return Root().With(ctx...)
}
