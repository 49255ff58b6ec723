package store

import "github.com/EI94/Urbanova-sub017/core/db"

// Stores hands out Postgres-backed stores bound to one connection or
// transaction.
type Stores struct {
	q db.DBTX
}

func NewStores(q db.DBTX) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Timelines() TimelineStore {
	return newTimelineStore(s.q)
}

func (s *Stores) Triggers() TriggerStore {
	return newTriggerStore(s.q)
}

func (s *Stores) Proposals() ProposalStore {
	return newProposalStore(s.q)
}

func (s *Stores) FactLedger() FactLedger {
	return newFactLedger(s.q)
}
