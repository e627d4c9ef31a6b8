// TODO FIXME: prepend license
// Copyright (c) 2025 privateLINE, LLC.

package types

import "fmt"

// EngineStartError - the packet-filter engine could not be initialized or started.
// No rule is active when this error is returned.
type EngineStartError struct {
	containedErr error
	diagnostic   string
}

func NewEngineStartError(err error, diagnostic string) *EngineStartError {
	return &EngineStartError{containedErr: err, diagnostic: diagnostic}
}

func (e *EngineStartError) Error() string {
	return withDiagnostic(fmt.Sprintf("failed to start packet-filter engine: %v", e.containedErr), e.diagnostic)
}

func (e *EngineStartError) Unwrap() error {
	return e.containedErr
}

func (e *EngineStartError) Diagnostic() string {
	return e.diagnostic
}

// RuleAddError - a rule of the group could not be added. Rules added before the failure remain active.
type RuleAddError struct {
	containedErr error
	diagnostic   string

	code  string
	layer string
	added int
}

func NewRuleAddError(err error, diagnostic, code, layer string, added int) *RuleAddError {
	return &RuleAddError{containedErr: err, diagnostic: diagnostic, code: code, layer: layer, added: added}
}

func (e *RuleAddError) Error() string {
	return withDiagnostic(fmt.Sprintf("failed to add rule '%s' (layer '%s'): %v", e.code, e.layer, e.containedErr), e.diagnostic)
}

func (e *RuleAddError) Unwrap() error {
	return e.containedErr
}

func (e *RuleAddError) Diagnostic() string {
	return e.diagnostic
}

func (e *RuleAddError) Code() string {
	return e.code
}

func (e *RuleAddError) Layer() string {
	return e.layer
}

// AddedBeforeFailure - number of rules of this group that are active in the engine
func (e *RuleAddError) AddedBeforeFailure() int {
	return e.added
}

// RuleRemoveError - a rule could not be removed from the engine
type RuleRemoveError struct {
	containedErr error
	diagnostic   string

	code string
	id   uint64
}

func NewRuleRemoveError(err error, diagnostic, code string, id uint64) *RuleRemoveError {
	return &RuleRemoveError{containedErr: err, diagnostic: diagnostic, code: code, id: id}
}

func (e *RuleRemoveError) Error() string {
	return withDiagnostic(fmt.Sprintf("failed to remove rule '%s' (id %d): %v", e.code, e.id, e.containedErr), e.diagnostic)
}

func (e *RuleRemoveError) Unwrap() error {
	return e.containedErr
}

func (e *RuleRemoveError) Diagnostic() string {
	return e.diagnostic
}

func (e *RuleRemoveError) Code() string {
	return e.code
}

func (e *RuleRemoveError) ID() uint64 {
	return e.id
}

func withDiagnostic(msg, diagnostic string) string {
	if len(diagnostic) == 0 {
		return msg
	}
	return msg + " (" + diagnostic + ")"
}
