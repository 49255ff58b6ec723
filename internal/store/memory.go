package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/EI94/Urbanova-sub017/internal/model"
)

// Memory is an in-process backend with the same semantics as the Postgres
// stores. Values are kept JSON-encoded so callers never share memory with
// the store. WithTx runs against a copy of the state and swaps it in on
// success, so a failed transaction leaves nothing behind.
type Memory struct {
	mu    sync.Mutex
	state *memState
}

type ledgerKey struct {
	projectID   string
	factID      string
	factVersion int64
}

type memState struct {
	timelines map[string][]byte
	versions  map[string]int64
	history   map[string][][]byte
	triggers  map[int64][]byte
	proposals map[int64][]byte
	ledger    map[ledgerKey]int64
}

func newMemState() *memState {
	return &memState{
		timelines: make(map[string][]byte),
		versions:  make(map[string]int64),
		history:   make(map[string][][]byte),
		triggers:  make(map[int64][]byte),
		proposals: make(map[int64][]byte),
		ledger:    make(map[ledgerKey]int64),
	}
}

// clone copies the maps; encoded values are never mutated in place.
func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.timelines {
		c.timelines[k] = v
	}
	for k, v := range s.versions {
		c.versions[k] = v
	}
	for k, v := range s.history {
		c.history[k] = append([][]byte(nil), v...)
	}
	for k, v := range s.triggers {
		c.triggers[k] = v
	}
	for k, v := range s.proposals {
		c.proposals[k] = v
	}
	for k, v := range s.ledger {
		c.ledger[k] = v
	}
	return c
}

func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

// MemoryStores exposes the memory backend through the same accessors as Stores.
type MemoryStores struct {
	m  *Memory
	tx *memState
}

// Stores returns stores that lock per call, for use outside transactions.
func (m *Memory) Stores() *MemoryStores {
	return &MemoryStores{m: m}
}

// WithTx runs fn on a private copy of the state; the copy replaces the live
// state only if fn succeeds. Transactions are serialized.
func (m *Memory) WithTx(ctx context.Context, fn func(s *MemoryStores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := m.state.clone()
	if err := fn(&MemoryStores{m: m, tx: working}); err != nil {
		return err
	}
	m.state = working
	return nil
}

func (s *MemoryStores) with(fn func(st *memState) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return fn(s.m.state)
}

func (s *MemoryStores) Timelines() TimelineStore {
	return memTimelines{s}
}

func (s *MemoryStores) Triggers() TriggerStore {
	return memTriggers{s}
}

func (s *MemoryStores) Proposals() ProposalStore {
	return memProposals{s}
}

func (s *MemoryStores) FactLedger() FactLedger {
	return memLedger{s}
}

type memTimelines struct{ s *MemoryStores }

func (t memTimelines) Get(ctx context.Context, projectID string) (*model.WBS, error) {
	var wbs model.WBS
	err := t.s.with(func(st *memState) error {
		doc, ok := st.timelines[projectID]
		if !ok {
			return ErrNotFound
		}
		return json.Unmarshal(doc, &wbs)
	})
	if err != nil {
		return nil, err
	}
	return &wbs, nil
}

func (t memTimelines) Create(ctx context.Context, wbs *model.WBS) error {
	doc, err := json.Marshal(wbs)
	if err != nil {
		return fmt.Errorf("encoding timeline: %w", err)
	}
	return t.s.with(func(st *memState) error {
		if _, exists := st.timelines[wbs.ProjectID]; exists {
			return ErrConflict
		}
		st.timelines[wbs.ProjectID] = doc
		st.versions[wbs.ProjectID] = wbs.Version
		return nil
	})
}

func (t memTimelines) PutIfVersionMatches(ctx context.Context, wbs *model.WBS, expectedVersion int64) error {
	if wbs.Version <= expectedVersion {
		return fmt.Errorf("new version %d must exceed %d", wbs.Version, expectedVersion)
	}
	doc, err := json.Marshal(wbs)
	if err != nil {
		return fmt.Errorf("encoding timeline: %w", err)
	}
	return t.s.with(func(st *memState) error {
		live, ok := st.versions[wbs.ProjectID]
		if !ok {
			return ErrNotFound
		}
		if live != expectedVersion {
			return fmt.Errorf("%w: expected %d, live %d", ErrVersionMismatch, expectedVersion, live)
		}
		st.timelines[wbs.ProjectID] = doc
		st.versions[wbs.ProjectID] = wbs.Version
		return nil
	})
}

func (t memTimelines) AppendHistory(ctx context.Context, projectID string, proposal *model.Proposal) error {
	doc, err := json.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("encoding proposal: %w", err)
	}
	return t.s.with(func(st *memState) error {
		if _, ok := st.timelines[projectID]; !ok {
			return ErrNotFound
		}
		st.history[projectID] = append(st.history[projectID], doc)
		return nil
	})
}

func (t memTimelines) ListHistory(ctx context.Context, projectID string) ([]model.Proposal, error) {
	var docs [][]byte
	_ = t.s.with(func(st *memState) error {
		docs = append(docs, st.history[projectID]...)
		return nil
	})
	return decodeAll[model.Proposal](docs)
}

type memTriggers struct{ s *MemoryStores }

func (t memTriggers) Create(ctx context.Context, trigger *model.Trigger) error {
	doc, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("encoding trigger: %w", err)
	}
	return t.s.with(func(st *memState) error {
		if _, exists := st.triggers[trigger.ID]; exists {
			return ErrConflict
		}
		st.triggers[trigger.ID] = doc
		return nil
	})
}

func (t memTriggers) GetByID(ctx context.Context, id int64) (*model.Trigger, error) {
	var trigger model.Trigger
	err := t.s.with(func(st *memState) error {
		doc, ok := st.triggers[id]
		if !ok {
			return ErrNotFound
		}
		return json.Unmarshal(doc, &trigger)
	})
	if err != nil {
		return nil, err
	}
	return &trigger, nil
}

func (t memTriggers) Update(ctx context.Context, trigger *model.Trigger) error {
	doc, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("encoding trigger: %w", err)
	}
	return t.s.with(func(st *memState) error {
		if _, ok := st.triggers[trigger.ID]; !ok {
			return ErrNotFound
		}
		st.triggers[trigger.ID] = doc
		return nil
	})
}

func (t memTriggers) ListActiveByProject(ctx context.Context, projectID string) ([]model.Trigger, error) {
	var docs [][]byte
	_ = t.s.with(func(st *memState) error {
		for _, doc := range st.triggers {
			docs = append(docs, doc)
		}
		return nil
	})

	all, err := decodeAll[model.Trigger](docs)
	if err != nil {
		return nil, err
	}

	active := make([]model.Trigger, 0, len(all))
	for _, tr := range all {
		if tr.ProjectID == projectID && !tr.Status.IsTerminal() {
			active = append(active, tr)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return less(active[i].DetectedAt, active[j].DetectedAt, active[i].ID, active[j].ID)
	})
	return active, nil
}

type memProposals struct{ s *MemoryStores }

func (p memProposals) Create(ctx context.Context, proposal *model.Proposal) error {
	doc, err := json.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("encoding proposal: %w", err)
	}
	return p.s.with(func(st *memState) error {
		if _, exists := st.proposals[proposal.ID]; exists {
			return ErrConflict
		}
		if _, ok := st.triggers[proposal.TriggerID]; !ok {
			return fmt.Errorf("proposal %d references unknown trigger %d: %w", proposal.ID, proposal.TriggerID, ErrNotFound)
		}
		st.proposals[proposal.ID] = doc
		return nil
	})
}

func (p memProposals) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	var proposal model.Proposal
	err := p.s.with(func(st *memState) error {
		doc, ok := st.proposals[id]
		if !ok {
			return ErrNotFound
		}
		return json.Unmarshal(doc, &proposal)
	})
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (p memProposals) Update(ctx context.Context, proposal *model.Proposal) error {
	doc, err := json.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("encoding proposal: %w", err)
	}
	return p.s.with(func(st *memState) error {
		if _, ok := st.proposals[proposal.ID]; !ok {
			return ErrNotFound
		}
		st.proposals[proposal.ID] = doc
		return nil
	})
}

type memLedger struct{ s *MemoryStores }

func (l memLedger) Claim(ctx context.Context, projectID, factID string, factVersion int64, triggerID int64) (int64, error) {
	var existing int64
	err := l.s.with(func(st *memState) error {
		key := ledgerKey{projectID: projectID, factID: factID, factVersion: factVersion}
		if owner, ok := st.ledger[key]; ok {
			existing = owner
			return nil
		}
		st.ledger[key] = triggerID
		return nil
	})
	return existing, err
}

func less(a, b time.Time, aID, bID int64) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID < bID
}
