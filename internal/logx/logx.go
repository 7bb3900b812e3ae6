package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
)

// Level orders log severities.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel accepts debug, info, warn/warning and error. Anything else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var minLevel atomic.Int32

func init() {
	minLevel.Store(int32(ParseLevel(os.Getenv("LOG_LEVEL"))))
}

// SetLevel changes the minimum level printed.
func SetLevel(l Level) { minLevel.Store(int32(l)) }

// Enabled reports whether messages at l are printed.
func Enabled(l Level) bool { return int32(l) >= minLevel.Load() }

// colores por nivel
var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgBlue),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

// colores por componente
var componentColor = map[string]*color.Color{
	"Api":     color.New(color.FgCyan),
	"Session": color.New(color.FgMagenta),
	"Console": color.New(color.FgGreen),
	"Mock":    color.New(color.FgCyan),
	"HTTP":    color.New(color.FgBlue),
	"Config":  color.New(color.FgMagenta),
	"Worker":  color.New(color.FgYellow),
}

var appEnv atomic.Pointer[string]

// SetEnv sets the environment name that decides colored output. Until it is
// called the ENV variable is used.
func SetEnv(env string) { appEnv.Store(&env) }

func currentEnv() string {
	if env := appEnv.Load(); env != nil {
		return *env
	}
	return os.Getenv("ENV")
}

// detecta color mode
func useColor() bool {
	env := currentEnv()
	return (env == "local" || env == "dev") && !color.NoColor
}

// --- Public API ---

func Debug(component, msg string, args ...any) {
	logGeneric(LevelDebug, component, msg, args...)
}

func Info(component, msg string, args ...any) {
	logGeneric(LevelInfo, component, msg, args...)
}

func Warn(component, msg string, args ...any) {
	logGeneric(LevelWarn, component, msg, args...)
}

func Error(component, msg string, args ...any) {
	logGeneric(LevelError, component, msg, args...)
}

// --- Core ---

func logGeneric(level Level, component, msg string, args ...any) {
	if !Enabled(level) {
		return
	}
	full := fmt.Sprintf(msg, args...)

	if useColor() {
		lc := levelColor[level]
		comp := "[" + component + "]"
		if cc, ok := componentColor[component]; ok {
			comp = cc.Sprint(comp)
		}
		log.Printf("%s %s %s", lc.Sprint("["+level.String()+"]"), comp, full)
		return
	}
	log.Printf("[%s] [%s] %s", level, component, full)
}
