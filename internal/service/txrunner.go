package service

import (
	"context"

	"github.com/EI94/Urbanova-sub017/core/db"
	"github.com/EI94/Urbanova-sub017/internal/store"
)

// StoreProvider is satisfied by both the Postgres and the in-memory store factories.
type StoreProvider interface {
	Timelines() store.TimelineStore
	Triggers() store.TriggerStore
	Proposals() store.ProposalStore
	FactLedger() store.FactLedger
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

func NewTxRunner(database *db.DB) TxRunner {
	return &dbTxRunner{db: database}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q db.DBTX) error {
		stores := store.NewStores(q)
		return fn(stores)
	})
}

type memoryTxRunner struct {
	mem *store.Memory
}

func NewMemoryTxRunner(mem *store.Memory) TxRunner {
	return &memoryTxRunner{mem: mem}
}

func (r *memoryTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.mem.WithTx(ctx, func(s *store.MemoryStores) error {
		return fn(s)
	})
}
