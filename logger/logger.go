//
//  Daemon for privateLINE Connect Desktop
//  https://github.com/swapnilsparsh/devsVPN
//
//  Created by Stelnykovych Alexandr.
//  Copyright (c) 2023 IVPN Limited.
//
//  This file is part of the Daemon for privateLINE Connect Desktop.
//
//  The Daemon for privateLINE Connect Desktop is free software: you can redistribute it and/or
//  modify it under the terms of the GNU General Public License as published by the Free
//  Software Foundation, either version 3 of the License, or (at your option) any later version.
//
//  The Daemon for privateLINE Connect Desktop is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of MERCHANTABILITY
//  or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for more
//  details.
//
//  You should have received a copy of the GNU General Public License
//  along with the Daemon for privateLINE Connect Desktop. If not, see <https://www.gnu.org/licenses/>.
//

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

const timeFormat = "2006-01-02 15:04:05.000000"

var (
	mutex     sync.Mutex
	isEnabled bool
	logFile   *os.File

	out          = &output{}
	globalLogger = NewLogger("*")
)

// output fans every record out to stdout and, when logging is enabled, to the log file.
type output struct{}

func (o *output) Write(p []byte) (int, error) {
	mutex.Lock()
	defer mutex.Unlock()

	os.Stdout.Write(p)
	if isEnabled && logFile != nil {
		if _, err := logFile.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Init opens (or creates) the log file. Records are written to it only after Enable(true).
func Init(logFilePath string) error {
	mutex.Lock()
	defer mutex.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	if len(logFilePath) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(logFilePath), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f
	return nil
}

// Enable switches file logging on or off
func Enable(enable bool) {
	mutex.Lock()
	defer mutex.Unlock()
	isEnabled = enable
}

// IsEnabled returns true when records are written to the log file
func IsEnabled() bool {
	mutex.Lock()
	defer mutex.Unlock()
	return isEnabled
}

// Close closes the log file (if opened)
func Close() {
	mutex.Lock()
	defer mutex.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Logger - tagged logger. Each package keeps its own instance:
//
//	var log *logger.Logger
//	func init() { log = logger.NewLogger("frwl") }
type Logger struct {
	l *charmlog.Logger
}

// NewLogger creates a logger with the given tag
func NewLogger(pref string) *Logger {
	return &Logger{
		l: charmlog.NewWithOptions(out, charmlog.Options{
			Prefix:          fmt.Sprintf("%-6s", pref),
			ReportTimestamp: true,
			TimeFormat:      timeFormat,
			Level:           charmlog.DebugLevel,
		}),
	}
}

func (l *Logger) Info(v ...interface{}) {
	l.l.Info(fmt.Sprint(v...))
}

func (l *Logger) Debug(v ...interface{}) {
	l.l.Debug(fmt.Sprint(v...))
}

func (l *Logger) Warning(v ...interface{}) {
	l.l.Warn(fmt.Sprint(v...))
}

func (l *Logger) Error(v ...interface{}) {
	l.l.Error(fmt.Sprint(v...))
}

// ErrorE logs the error (prefixed with the caller function name) and returns it unchanged.
// callerStackOffset allows to skip helper frames when resolving the caller name.
func (l *Logger) ErrorE(err error, callerStackOffset int) error {
	if err == nil {
		return nil
	}
	l.l.Error(callerName(2+callerStackOffset) + ": " + err.Error())
	return err
}

// ErrorFE formats an error (fmt.Errorf semantics, %w supported), logs it and returns it.
func (l *Logger) ErrorFE(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	l.l.Error(callerName(2) + ": " + err.Error())
	return err
}

// Panic logs the message and panics
func (l *Logger) Panic(v ...interface{}) {
	msg := fmt.Sprint(v...)
	l.l.Error("PANIC: " + msg)
	panic(msg)
}

func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "?"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "?"
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func Info(v ...interface{}) {
	globalLogger.Info(v...)
}

func Debug(v ...interface{}) {
	globalLogger.Debug(v...)
}

func Warning(v ...interface{}) {
	globalLogger.Warning(v...)
}

func Error(v ...interface{}) {
	globalLogger.Error(v...)
}

func Panic(v ...interface{}) {
	globalLogger.Panic(v...)
}
