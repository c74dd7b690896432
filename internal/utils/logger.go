package utils

import (
	"fmt"
	"log"
	"os"
)

// Logger is a simple leveled logger scoped to one component.
type Logger struct {
	infoLog  *log.Logger
	errorLog *log.Logger
}

// NewLogger creates a logger whose lines carry the component name.
func NewLogger(component string) *Logger {
	prefix := fmt.Sprintf("[%s] ", component)
	return &Logger{
		infoLog:  log.New(os.Stdout, "INFO: "+prefix, log.Ldate|log.Ltime),
		errorLog: log.New(os.Stderr, "ERROR: "+prefix, log.Ldate|log.Ltime),
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.infoLog.Printf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.errorLog.Printf(format, v...)
}
