package app

import "time"

// Operation tracks one CLI command from start to finish. It is logged when
// the app closes so every run leaves a single summary line in the log.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
	Err        error
}

// NewOperation creates an operation that is assumed to succeed until Fail is called.
func NewOperation(id, name string, startedAt time.Time) *Operation {
	return &Operation{
		ID:        id,
		Name:      name,
		Status:    "success",
		StartedAt: startedAt,
	}
}

// Fail marks the operation as failed. A nil err is ignored.
func (op *Operation) Fail(err error) {
	if err == nil {
		return
	}
	op.Status = "error"
	op.Err = err
}

// Failed reports whether the operation was marked as failed.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
