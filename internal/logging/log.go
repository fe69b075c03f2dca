// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.



package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Singleton log writer. Writes to stdout, and optionally to a file.
// Does not add prefixes, or force newlines.

var (
	mu        sync.Mutex
	logFile   *bufio.Writer // The optional additional file to log into
	logFileOS *os.File
	stdout    io.Writer = os.Stdout
)

// Enables logging to file, closing any previous log file
func LogAlsoToFile(fileName string) (err error) {
	mu.Lock()
	defer mu.Unlock()
	if err = closeLocked(); err != nil {
		return err
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	logFileOS, logFile = f, bufio.NewWriter(f)
	return nil
}

func closeLocked() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Flush()
	if cerr := logFileOS.Close(); err == nil {
		err = cerr
	}
	logFile, logFileOS = nil, nil
	return err
}

// Tee writer to stdout and the optional log file. Safe for concurrent use
type Writer struct{}

// The process-wide log writer
var Log io.Writer = Writer{}

func (Writer) Write(p []byte) (n int, err error) {
	mu.Lock()
	defer mu.Unlock()
	n, err = stdout.Write(p)
	if err != nil || logFile == nil {
		return n, err
	}
	return logFile.Write(p)
}

func LogPrint(args ...interface{}) (n int, err error) {
	return fmt.Fprint(Log, args...)
}

func LogPrintln(args ...interface{}) (n int, err error) {
	return fmt.Fprintln(Log, args...)
}

func LogPrintf(format string, args ...interface{}) (n int, err error) {
	return fmt.Fprintf(Log, format, args...)
}

func LogFatal(args ...interface{}) {
	fmt.Fprintln(Log, args...)
	LogClose()
	os.Exit(1)
}

func LogFatalf(format string, args ...interface{}) {
	fmt.Fprintf(Log, format, args...)
	LogClose()
	os.Exit(1)
}

// Flushes the log file to disk
func LogSync() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Flush()
		logFileOS.Sync()
	}
}

// Flushes and closes the log file, if any. Further output goes to stdout only
func LogClose() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}
