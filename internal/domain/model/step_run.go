package model

import "time"

// StepRun is one durably recorded step completion. A row exists only for
// steps whose work finished; a crashed step leaves no row and is re-run.
type StepRun struct {
	WorkflowID  string
	StepName    string
	Result      []byte // serialized step result, replayed on re-invocation
	CompletedAt time.Time
}
