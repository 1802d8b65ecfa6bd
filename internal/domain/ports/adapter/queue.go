package adapter

import "context"

// Submission is one queued export request. The queue's persistence is
// at-least-once: a submission may reach the workflow more than once, and the
// step ledger is what makes that safe.
type Submission struct {
	WorkflowID    string `json:"workflow_id"`
	ProjectUnitID int    `json:"project_unit_id"`
	BookIDs       []int  `json:"book_ids,omitempty"`
	RequestedBy   string `json:"requested_by,omitempty"`
}

// SubmissionQueue accepts export requests without the caller waiting for the
// export itself. Enqueue assigns a fresh workflow id, or reuses the one of an
// identical submission still in flight (deduped reports which).
type SubmissionQueue interface {
	Enqueue(ctx context.Context, sub Submission) (workflowID string, deduped bool, err error)
}
