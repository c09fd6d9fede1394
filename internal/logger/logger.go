// Package logger provides named logrus loggers with a compact single-line format.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	loggers = make(map[string]*Handle)

	framePlaceHolder = runtime.Frame{Function: "???", File: "???", Line: 0}
)

// Handle is a named logger. It embeds logrus.Logger so the usual
// Debugf/Infof/... methods are available directly.
type Handle struct {
	logrus.Logger

	name     string
	pid      int
	colorful bool
}

// Format implements logrus.Formatter.
func (l *Handle) Format(e *logrus.Entry) ([]byte, error) {
	lvlStr := strings.ToUpper(e.Level.String())
	if l.colorful {
		var color int
		switch e.Level {
		case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
			color = 31 // RED
		case logrus.WarnLevel:
			color = 33 // YELLOW
		case logrus.InfoLevel:
			color = 34 // BLUE
		default:
			color = 35 // MAGENTA
		}
		lvlStr = fmt.Sprintf("\033[1;%dm%s\033[0m", color, lvlStr)
	}
	const timeFormat = "2006/01/02 15:04:05.000000"
	caller := e.Caller
	if caller == nil {
		caller = &framePlaceHolder
	}
	str := fmt.Sprintf("%v %s[%d] <%v>: %v [%s@%s:%d]",
		e.Time.Format(timeFormat),
		l.name,
		l.pid,
		lvlStr,
		strings.TrimRight(e.Message, "\n"),
		MethodName(caller.Function),
		path.Base(caller.File),
		caller.Line)

	if len(e.Data) != 0 {
		str += " " + fmt.Sprint(e.Data)
	}
	if !strings.HasSuffix(str, "\n") {
		str += "\n"
	}
	return []byte(str), nil
}

// MethodName strips the package path from a fully qualified function name
// and skips closure suffixes such as func1.
func MethodName(fullFuncName string) string {
	firstSlash := strings.Index(fullFuncName, "/")
	if firstSlash != -1 && firstSlash < len(fullFuncName)-1 {
		fullFuncName = fullFuncName[firstSlash+1:]
	}
	lastDot := strings.LastIndex(fullFuncName, ".")
	if lastDot == -1 || lastDot == len(fullFuncName)-1 {
		return fullFuncName
	}
	method := fullFuncName[lastDot+1:]
	if len(method) > 4 && strings.HasPrefix(method, "func") && method[4] >= '0' && method[4] <= '9' {
		if candidate := MethodName(fullFuncName[:lastDot]); candidate != "" {
			method = candidate
		}
	}
	return method
}

func newLogger(name string) *Handle {
	l := &Handle{Logger: *logrus.New(), name: name, pid: os.Getpid()}
	l.Formatter = l
	l.Out = os.Stderr
	l.Level = logrus.WarnLevel
	l.SetReportCaller(true)
	return l
}

// GetLogger returns the logger registered under name, creating it on first use.
func GetLogger(name string) *Handle {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}
	l := newLogger(name)
	loggers[name] = l
	return l
}

// SetLogLevel applies lvl to every registered logger.
func SetLogLevel(lvl logrus.Level) {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		l.SetLevel(lvl)
	}
}

// SetLogLevelString parses a level name ("debug", "info", ...) and applies it.
func SetLogLevelString(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	SetLogLevel(lvl)
	return nil
}

// EnableLogColor turns on ANSI level coloring for every registered logger.
func EnableLogColor() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		l.colorful = true
	}
}

// SetOutput redirects every registered logger to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		l.SetOutput(w)
	}
}

// SetOutFile appends all log output to the named file. The returned closer
// must be closed by the caller once logging is finished.
func SetOutFile(name string) (io.Closer, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
	}
	SetOutput(f)
	mu.Lock()
	for _, l := range loggers {
		l.colorful = false
	}
	mu.Unlock()
	return f, nil
}
