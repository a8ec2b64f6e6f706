// ABOUTME: Mutation log for backend writes: every create, attach, removal and training run.
// ABOUTME: Entries fan out to sinks such as the SQLite log and the NATS publisher.
package activity

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Actions recorded by the gateway decorator.
const (
	ActionCreateStrategy = "create_strategy"
	ActionAddModel       = "add_model"
	ActionRemoveStrategy = "remove_strategy"
	ActionAddDataset     = "add_dataset"
	ActionRemoveDataset  = "remove_dataset"
	ActionTrain          = "train"
	ActionRemoveRun      = "remove_run"
)

// Outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Entry is one recorded mutation.
type Entry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Action  string    `json:"action"`
	Subject string    `json:"subject"`
	Outcome string    `json:"outcome"`
	Detail  string    `json:"detail"`
}

// Sink receives entries. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// NewEntry stamps an entry with a fresh ULID and the current time.
func NewEntry(action, subject string, err error, detail string) Entry {
	e := Entry{
		ID:      ulid.Make().String(),
		At:      time.Now().UTC(),
		Action:  action,
		Subject: subject,
		Outcome: OutcomeOK,
		Detail:  detail,
	}
	if err != nil {
		e.Outcome = OutcomeError
		e.Detail = err.Error()
	}
	return e
}
