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

package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/service/srverrors"
)

// Timeout - every command is killed after this period.
// There is no other way to cancel a command: a stuck command blocks the caller until the timeout.
var Timeout = 30 * time.Second

func commandString(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

func newCommand(workDir, name string, args ...string) (*exec.Cmd, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = time.Second // orphaned children may keep the output pipes open
	if len(workDir) > 0 {
		cmd.Dir = workDir
	}
	return cmd, cancel
}

func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Exec - execute external process and wait for it to finish.
// Returns ShellExecutionError when the process can not be started or exits with non-zero code.
func Exec(log *logger.Logger, name string, args ...string) error {
	cmd, cancel := newCommand("", name, args...)
	defer cancel()

	if log != nil {
		log.Debug("Shell exec: ", commandString(name, args...))
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return &srverrors.ShellExecutionError{
			Command:  commandString(name, args...),
			ExitCode: exitCodeOf(err),
			Output:   strings.TrimSpace(string(out)),
			Err:      err,
		}
	}
	return nil
}

// ExecAndGetOutput - execute external process and return its output (stdout and stderr separately).
// maxRes - maximum size of each returned output (in bytes); if exceeded, isBufferTooSmall == true and the output is truncated.
func ExecAndGetOutput(log *logger.Logger, maxRes int, workDir, name string, args ...string) (outText, outErrText string, exitCode int, isBufferTooSmall bool, err error) {
	cmd, cancel := newCommand(workDir, name, args...)
	defer cancel()

	if log != nil {
		log.Debug("Shell exec: ", commandString(name, args...))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	exitCode = 0
	if err != nil {
		exitCode = exitCodeOf(err)
	}

	outText, outErrText = stdout.String(), stderr.String()
	if maxRes > 0 {
		if len(outText) > maxRes {
			outText = outText[:maxRes]
			isBufferTooSmall = true
		}
		if len(outErrText) > maxRes {
			outErrText = outErrText[:maxRes]
			isBufferTooSmall = true
		}
	}

	if err != nil {
		err = &srverrors.ShellExecutionError{
			Command:  commandString(name, args...),
			ExitCode: exitCode,
			Output:   strings.TrimSpace(outErrText),
			Err:      err,
		}
	}
	return outText, outErrText, exitCode, isBufferTooSmall, err
}

// ExecAndProcessOutput - execute external process and pass each line of its output to outProcessFunc.
// outProcessFunc is called from two goroutines (stdout and stderr), but never concurrently.
func ExecAndProcessOutput(log *logger.Logger, outProcessFunc func(text string, isError bool), workDir, name string, args ...string) error {
	cmd, cancel := newCommand(workDir, name, args...)
	defer cancel()

	if log != nil {
		log.Debug("Shell exec: ", commandString(name, args...))
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return &srverrors.ShellExecutionError{Command: commandString(name, args...), ExitCode: -1, Err: err}
	}

	var (
		wg      sync.WaitGroup
		outLock sync.Mutex
	)
	reader := func(r io.Reader, isError bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if outProcessFunc == nil {
				continue
			}
			outLock.Lock()
			outProcessFunc(scanner.Text(), isError)
			outLock.Unlock()
		}
	}
	wg.Add(2)
	go reader(stdout, false)
	go reader(stderr, true)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return &srverrors.ShellExecutionError{Command: commandString(name, args...), ExitCode: exitCodeOf(err), Err: err}
	}
	return nil
}

// ExecShellCommand - run a command line through the system shell ('sh -c' or 'cmd /C') and return its stdout.
func ExecShellCommand(log *logger.Logger, command string) (string, error) {
	name, args := "sh", []string{"-c", command}
	if runtime.GOOS == "windows" {
		name, args = "cmd", []string{"/C", command}
	}

	outText, _, _, _, err := ExecAndGetOutput(log, 0, "", name, args...)
	return outText, err
}
