// ABOUTME: Step, kind and origin vocabulary of the strategy configuration flow.
// ABOUTME: Sentinel errors returned when an action is not valid in the current state.
package session

import "errors"

// Step is the position in the two-step configuration flow.
type Step int

const (
	StepNamingAndKind      Step = 0
	StepPipelineDefinition Step = 1
)

func (s Step) String() string {
	switch s {
	case StepNamingAndKind:
		return "naming_and_kind"
	case StepPipelineDefinition:
		return "pipeline_definition"
	}
	return "unknown"
}

// Strategy kinds understood by the attach forms.
const (
	KindUnimodal    = "unimodal"
	KindEarlyFusion = "early_fusion"
	KindLateFusion  = "late_fusion"
)

// KnownKind reports whether kind has an attach form.
func KnownKind(kind string) bool {
	switch kind {
	case KindUnimodal, KindEarlyFusion, KindLateFusion:
		return true
	}
	return false
}

// Origin tags how a session was constructed.
type Origin string

const (
	OriginNew  Origin = "new"
	OriginEdit Origin = "edit"
)

var (
	ErrWrongStep         = errors.New("action not allowed at the current step")
	ErrIncomplete        = errors.New("required fields are missing")
	ErrNoForm            = errors.New("no attach form for this strategy kind")
	ErrUnknownModelType  = errors.New("unknown model type")
	ErrUnknownInput      = errors.New("unknown model input")
	ErrInputNotSupported = errors.New("this strategy kind takes no model input")
	ErrClosed            = errors.New("session closed")
)

// CreateStatus tracks the background create-strategy call fired by Submit.
type CreateStatus string

const (
	CreateIdle    CreateStatus = ""
	CreatePending CreateStatus = "pending"
	CreateDone    CreateStatus = "created"
	CreateFailed  CreateStatus = "failed"
	CreateSkipped CreateStatus = "existing"
)
