package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/ports/adapter"
)

const (
	submissionsKey = "export:submissions"
	activePrefix   = "export:active:"
)

var _ adapter.SubmissionQueue = (*ExportQueue)(nil)

// ExportQueue is the durable submission queue: payloads live on a redis list
// (surviving process restarts) and an in-flight submission's identity is
// reserved with SETNX so identical requests reuse the same workflow id until
// the run reaches a terminal state.
type ExportQueue struct {
	cli      RedisClient
	dedupTTL time.Duration
	log      *zerolog.Logger
}

func NewExportQueue(cli RedisClient, dedupTTL time.Duration, logger *zerolog.Logger) *ExportQueue {
	l := logger.With().Str("component", "ExportQueue").Logger()
	if dedupTTL <= 0 {
		dedupTTL = time.Hour
	}
	return &ExportQueue{cli: cli, dedupTTL: dedupTTL, log: &l}
}

// Enqueue assigns a fresh ULID workflow id, or returns the id of an identical
// submission already in flight. The dedup reservation has a TTL as a backstop
// against a crashed run that never acknowledges.
func (q *ExportQueue) Enqueue(ctx context.Context, sub adapter.Submission) (string, bool, error) {
	identity := activePrefix + identityKey(sub.ProjectUnitID, sub.BookIDs)
	workflowID := ulid.Make().String()

	ok, err := q.cli.SetNX(ctx, identity, workflowID, q.dedupTTL)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	if !ok {
		existing, err := q.cli.Get(ctx, identity)
		if err == nil && existing != "" {
			return existing, true, nil
		}
		// Reservation expired between SETNX and GET; fall through with a
		// fresh reservation attempt on the next submit.
		return "", false, fmt.Errorf("%w: dedup reservation unreadable", domain.ErrQueueUnavailable)
	}

	sub.WorkflowID = workflowID
	payload, err := json.Marshal(sub)
	if err != nil {
		return "", false, fmt.Errorf("encode submission: %w", err)
	}
	if err := q.cli.RPush(ctx, submissionsKey, payload); err != nil {
		// Roll the reservation back so the caller can retry.
		_ = q.cli.Del(ctx, identity)
		return "", false, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	q.log.Debug().Str("workflow_id", workflowID).Int("project_unit_id", sub.ProjectUnitID).Msg("submission enqueued")
	return workflowID, false, nil
}

// Dequeue blocks up to timeout for the next submission. domain.ErrNotFound
// means the queue stayed empty.
func (q *ExportQueue) Dequeue(ctx context.Context, timeout time.Duration) (*adapter.Submission, error) {
	payload, err := q.cli.BLPop(ctx, timeout, submissionsKey)
	if err != nil {
		if errors.Is(err, Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	var sub adapter.Submission
	if err := json.Unmarshal([]byte(payload), &sub); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	return &sub, nil
}

// Acknowledge releases the submission's dedup reservation once its run has
// reached a terminal state, so the next identical request mints a new id.
func (q *ExportQueue) Acknowledge(ctx context.Context, sub *adapter.Submission) error {
	return q.cli.Del(ctx, activePrefix+identityKey(sub.ProjectUnitID, sub.BookIDs))
}

// identityKey is the job identity: project unit plus the normalized book set.
// An empty set means every book, same as nil; the two must collapse to one
// identity because the JSON payload drops an empty list, so a submission
// enqueued with []int{} comes back from Dequeue with nil BookIDs and
// Acknowledge recomputes the key from that.
func identityKey(projectUnitID int, bookIDs []int) string {
	if len(bookIDs) == 0 {
		return strconv.Itoa(projectUnitID) + ":all"
	}
	ids := append([]int(nil), bookIDs...)
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strconv.Itoa(projectUnitID) + ":" + strings.Join(parts, ",")
}
