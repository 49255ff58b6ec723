package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/EI94/Urbanova-sub017/core/db"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type triggerStore struct {
	q db.DBTX
}

func newTriggerStore(q db.DBTX) TriggerStore {
	return &triggerStore{q: q}
}

func (s *triggerStore) Create(ctx context.Context, t *model.Trigger) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding trigger: %w", err)
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO replan_triggers (id, project_id, status, payload, detected_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.ProjectID, string(t.Status), doc, t.DetectedAt, t.UpdatedAt)
	return mapWriteError(err)
}

func (s *triggerStore) GetByID(ctx context.Context, id int64) (*model.Trigger, error) {
	var doc []byte
	err := s.q.QueryRow(ctx, `SELECT payload FROM replan_triggers WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var t model.Trigger
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("decoding trigger %d: %w", id, err)
	}
	return &t, nil
}

func (s *triggerStore) Update(ctx context.Context, t *model.Trigger) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding trigger: %w", err)
	}

	tag, err := s.q.Exec(ctx, `
		UPDATE replan_triggers SET status = $2, payload = $3, updated_at = $4
		WHERE id = $1`,
		t.ID, string(t.Status), doc, t.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *triggerStore) ListActiveByProject(ctx context.Context, projectID string) ([]model.Trigger, error) {
	terminal := []string{string(model.TriggerStatusApplied), string(model.TriggerStatusRejected)}
	rows, err := s.q.Query(ctx, `
		SELECT payload FROM replan_triggers
		WHERE project_id = $1 AND status <> ALL($2)
		ORDER BY detected_at, id`,
		projectID, terminal)
	if err != nil {
		return nil, err
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Trigger](docs)
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}
