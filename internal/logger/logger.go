// Package logger provides the subsystem loggers shared by every component
// of chainhook-core. A single backend writes to stdout and, once
// InitLogRotator has been called, to a rotated log file on disk.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/jrick/logrotate/rotator"
)

// Level is a coarse log severity, ordered from most to least verbose.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRC"
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	case LevelError:
		return "ERR"
	default:
		return "OFF"
	}
}

// Logger is a tagged subsystem logger, e.g. FORK, BTCD, STKS, HOOK, MINE, COOR.
type Logger struct {
	tag   string
	level Level
}

var logRotator *rotator.Rotator

// InitLogRotator wires the process-wide log file. Safe to call once at
// startup; a no-op backend (stdout only) is used until it is called.
func InitLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 8)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

func writer() io.Writer {
	if logRotator == nil {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, logRotator)
}

// New returns a Logger for the given subsystem tag at the given minimum level.
func New(tag string, level Level) *Logger {
	return &Logger{tag: tag, level: level}
}

func (l *Logger) SetLevel(level Level) { l.level = level }

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	w := writer()
	prefix := "[" + level.String() + " " + l.tag + "] "
	if len(args) == 0 {
		io.WriteString(w, prefix+format+"\n")
		return
	}
	io.WriteString(w, prefix+fmt.Sprintf(format, args...)+"\n")
}

func (l *Logger) Tracef(format string, args ...interface{}) { l.log(LevelTrace, format, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }
