package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/EI94/Urbanova-sub017/core/db"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/jackc/pgx/v5"
)

type proposalStore struct {
	q db.DBTX
}

func newProposalStore(q db.DBTX) ProposalStore {
	return &proposalStore{q: q}
}

func (s *proposalStore) Create(ctx context.Context, p *model.Proposal) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding proposal: %w", err)
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO replan_proposals (id, project_id, trigger_id, status, base_version, proposal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.ProjectID, p.TriggerID, string(p.Status), p.BaseVersion, doc, p.CreatedAt, p.UpdatedAt)
	return mapWriteError(err)
}

func (s *proposalStore) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	var doc []byte
	err := s.q.QueryRow(ctx, `SELECT proposal FROM replan_proposals WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var p model.Proposal
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decoding proposal %d: %w", id, err)
	}
	return &p, nil
}

func (s *proposalStore) Update(ctx context.Context, p *model.Proposal) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding proposal: %w", err)
	}

	tag, err := s.q.Exec(ctx, `
		UPDATE replan_proposals SET status = $2, proposal = $3, updated_at = $4
		WHERE id = $1`,
		p.ID, string(p.Status), doc, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
