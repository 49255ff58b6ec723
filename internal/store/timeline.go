package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/EI94/Urbanova-sub017/core/db"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/jackc/pgx/v5"
)

type timelineStore struct {
	q db.DBTX
}

func newTimelineStore(q db.DBTX) TimelineStore {
	return &timelineStore{q: q}
}

func (s *timelineStore) Get(ctx context.Context, projectID string) (*model.WBS, error) {
	var doc []byte
	err := s.q.QueryRow(ctx, `SELECT wbs FROM timelines WHERE project_id = $1`, projectID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var wbs model.WBS
	if err := json.Unmarshal(doc, &wbs); err != nil {
		return nil, fmt.Errorf("decoding timeline %s: %w", projectID, err)
	}
	return &wbs, nil
}

func (s *timelineStore) Create(ctx context.Context, wbs *model.WBS) error {
	doc, err := json.Marshal(wbs)
	if err != nil {
		return fmt.Errorf("encoding timeline: %w", err)
	}

	tag, err := s.q.Exec(ctx, `
		INSERT INTO timelines (project_id, version, status, wbs)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id) DO NOTHING`,
		wbs.ProjectID, wbs.Version, string(wbs.Status), doc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *timelineStore) PutIfVersionMatches(ctx context.Context, wbs *model.WBS, expectedVersion int64) error {
	if wbs.Version <= expectedVersion {
		return fmt.Errorf("new version %d must exceed %d", wbs.Version, expectedVersion)
	}

	doc, err := json.Marshal(wbs)
	if err != nil {
		return fmt.Errorf("encoding timeline: %w", err)
	}

	tag, err := s.q.Exec(ctx, `
		UPDATE timelines
		SET version = $3, status = $4, wbs = $5, updated_at = now()
		WHERE project_id = $1 AND version = $2`,
		wbs.ProjectID, expectedVersion, wbs.Version, string(wbs.Status), doc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var live int64
	err = s.q.QueryRow(ctx, `SELECT version FROM timelines WHERE project_id = $1`, wbs.ProjectID).Scan(&live)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: expected %d, live %d", ErrVersionMismatch, expectedVersion, live)
}

func (s *timelineStore) AppendHistory(ctx context.Context, projectID string, proposal *model.Proposal) error {
	doc, err := json.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("encoding proposal: %w", err)
	}

	appliedAt := time.Now().UTC()
	if proposal.AppliedAt != nil {
		appliedAt = *proposal.AppliedAt
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO replan_history (project_id, seq, proposal_id, proposal, applied_at)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4
		FROM replan_history WHERE project_id = $1`,
		projectID, proposal.ID, doc, appliedAt)
	return err
}

func (s *timelineStore) ListHistory(ctx context.Context, projectID string) ([]model.Proposal, error) {
	rows, err := s.q.Query(ctx, `SELECT proposal FROM replan_history WHERE project_id = $1 ORDER BY seq`, projectID)
	if err != nil {
		return nil, err
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Proposal](docs)
}

func decodeAll[T any](docs [][]byte) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
