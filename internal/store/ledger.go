package store

import (
	"context"

	"github.com/EI94/Urbanova-sub017/core/db"
)

type factLedger struct {
	q db.DBTX
}

func newFactLedger(q db.DBTX) FactLedger {
	return &factLedger{q: q}
}

func (s *factLedger) Claim(ctx context.Context, projectID, factID string, factVersion int64, triggerID int64) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		INSERT INTO fact_ledger (project_id, fact_id, fact_version, trigger_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`,
		projectID, factID, factVersion, triggerID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 1 {
		return 0, nil
	}

	var existing int64
	err = s.q.QueryRow(ctx, `
		SELECT trigger_id FROM fact_ledger
		WHERE project_id = $1 AND fact_id = $2 AND fact_version = $3`,
		projectID, factID, factVersion).Scan(&existing)
	return existing, err
}
