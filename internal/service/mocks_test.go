package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/queue"
	"github.com/EI94/Urbanova-sub017/internal/replan"
	"github.com/EI94/Urbanova-sub017/internal/service"
	"github.com/EI94/Urbanova-sub017/internal/store"
	"github.com/EI94/Urbanova-sub017/internal/trigger"
)

type mockNotifier struct {
	mu            sync.Mutex
	notifyFn      func(ctx context.Context, n queue.Notification) error
	notifications []queue.Notification
}

func (m *mockNotifier) Notify(ctx context.Context, n queue.Notification) error {
	m.mu.Lock()
	m.notifications = append(m.notifications, n)
	m.mu.Unlock()
	if m.notifyFn != nil {
		return m.notifyFn(ctx, n)
	}
	return nil
}

func (m *mockNotifier) kinds() []queue.NotificationKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.NotificationKind, len(m.notifications))
	for i, n := range m.notifications {
		out[i] = n.Kind
	}
	return out
}

type mockTxRunner struct {
	withTxFn func(ctx context.Context, fn func(stores service.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return nil
}

// spyTxRunner calls beforeTx ahead of every transaction it delegates.
type spyTxRunner struct {
	inner    service.TxRunner
	beforeTx func(ctx context.Context)
}

func (s *spyTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	if s.beforeTx != nil {
		s.beforeTx(ctx)
	}
	return s.inner.WithTx(ctx, fn)
}

// fixture wires the services over the in-memory backend with a fixed clock.
type fixture struct {
	mem       *store.Memory
	txRunner  service.TxRunner
	notifier  *mockNotifier
	now       time.Time
	nextID    int64
	cfg       replan.Config
	timelines service.TimelineService
	lifecycle service.LifecycleService
	replan    service.ReplanService
}

func newFixture() *fixture {
	f := &fixture{
		mem:      store.NewMemory(),
		notifier: &mockNotifier{},
		now:      time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
		nextID:   1000,
		cfg:      replan.DefaultConfig(),
	}
	f.cfg.DefaultApprover = "pm@urbanova.test"
	f.txRunner = service.NewMemoryTxRunner(f.mem)
	f.wire()
	return f
}

func (f *fixture) wire() {
	clock := func() time.Time { return f.now }
	newID := func() int64 {
		return atomic.AddInt64(&f.nextID, 1)
	}
	stores := f.mem.Stores()
	f.timelines = service.NewTimelineService(stores, clock)
	f.lifecycle = service.NewLifecycleService(stores, f.txRunner, f.notifier, clock)
	f.replan = service.NewReplanService(
		stores,
		f.txRunner,
		trigger.NewDetector(newID, clock),
		replan.NewGenerator(f.cfg, newID, clock),
		f.lifecycle,
		f.notifier,
		clock,
	)
}

var projectStart = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func task(id string, duration int) model.Task {
	return model.Task{ID: id, ProjectID: "p1", Name: "Task " + id, Duration: duration}
}

func fs(from, to string) model.Dependency {
	return model.Dependency{From: from, To: to, Type: model.DependencyFinishToStart}
}

// chainParams is A(5) -> B(3) -> C(2).
func chainParams() service.GenerateTimelineParams {
	return service.GenerateTimelineParams{
		ProjectID:    "p1",
		StartDate:    projectStart,
		Tasks:        []model.Task{task("A", 5), task("B", 3), task("C", 2)},
		Dependencies: []model.Dependency{fs("A", "B"), fs("B", "C")},
	}
}

// diamondParams is A(1) -> {B(3), C(1)} -> D(1); C has two days of slack.
func diamondParams() service.GenerateTimelineParams {
	return service.GenerateTimelineParams{
		ProjectID:    "p1",
		StartDate:    projectStart,
		Tasks:        []model.Task{task("A", 1), task("B", 3), task("C", 1), task("D", 1)},
		Dependencies: []model.Dependency{fs("A", "B"), fs("A", "C"), fs("B", "D"), fs("C", "D")},
	}
}

func salFact(factID string, version int64, taskID string, delay int) model.FactChange {
	return model.FactChange{
		FactID:            factID,
		FactVersion:       version,
		FactType:          model.FactTypeSAL,
		ProjectID:         "p1",
		AffectedTaskRefs:  []string{taskID},
		ReportedDelayDays: delay,
		OccurredAt:        time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
		Detail:            model.SALFact{SALNumber: 3, PlannedPercent: 50, ActualPercent: 30},
	}
}
