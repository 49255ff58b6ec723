package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/EI94/Urbanova-sub017/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when creating an entity whose key already exists
var ErrConflict = errors.New("already exists")

// ErrVersionMismatch is returned by PutIfVersionMatches when the live
// version differs from the expected one.
var ErrVersionMismatch = fmt.Errorf("version mismatch: %w", model.ErrStaleBaseVersion)

// TimelineStore owns the live WBS of each project and its append-only
// re-plan history.
type TimelineStore interface {
	Get(ctx context.Context, projectID string) (*model.WBS, error)
	Create(ctx context.Context, wbs *model.WBS) error
	// PutIfVersionMatches replaces the live WBS only if its stored version
	// still equals expectedVersion.
	PutIfVersionMatches(ctx context.Context, wbs *model.WBS, expectedVersion int64) error
	AppendHistory(ctx context.Context, projectID string, proposal *model.Proposal) error
	ListHistory(ctx context.Context, projectID string) ([]model.Proposal, error)
}

// TriggerStore defines the contract for re-plan trigger data access
type TriggerStore interface {
	Create(ctx context.Context, trigger *model.Trigger) error
	GetByID(ctx context.Context, id int64) (*model.Trigger, error)
	Update(ctx context.Context, trigger *model.Trigger) error
	// ListActiveByProject returns non-terminal triggers ordered by detection time.
	ListActiveByProject(ctx context.Context, projectID string) ([]model.Trigger, error)
}

// ProposalStore defines the contract for re-plan proposal data access
type ProposalStore interface {
	Create(ctx context.Context, proposal *model.Proposal) error
	GetByID(ctx context.Context, id int64) (*model.Proposal, error)
	Update(ctx context.Context, proposal *model.Proposal) error
}

// FactLedger records which fact versions already produced a trigger.
type FactLedger interface {
	// Claim returns 0 if this call claimed the key for triggerID, or the id
	// of the trigger that claimed it earlier.
	Claim(ctx context.Context, projectID, factID string, factVersion int64, triggerID int64) (int64, error)
}
