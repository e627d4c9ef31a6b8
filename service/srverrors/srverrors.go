// TODO FIXME: prepend license
// Copyright (c) 2025 privateLINE, LLC.

package srverrors

import "fmt"

// RestoreKind - which part of the network configuration failed to restore
type RestoreKind string

const (
	RestoreKindDns  RestoreKind = "dns"
	RestoreKindIPv6 RestoreKind = "ipv6"
)

// RestoreError - a single interface could not be returned to its original configuration.
// It never aborts the restore sequence: remaining interfaces are restored anyway.
type RestoreError struct {
	Kind      RestoreKind
	Interface string
	Err       error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("failed to restore %s configuration of '%s': %v", e.Kind, e.Interface, e.Err)
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}

// ShellExecutionError - external command failed or returned no usable output
type ShellExecutionError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *ShellExecutionError) Error() string {
	msg := fmt.Sprintf("command '%s' failed (exit code %d)", e.Command, e.ExitCode)
	if len(e.Output) > 0 {
		msg += ": " + e.Output
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" [%v]", e.Err)
	}
	return msg
}

func (e *ShellExecutionError) Unwrap() error {
	return e.Err
}
