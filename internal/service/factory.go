package service

import (
	"time"

	"github.com/EI94/Urbanova-sub017/common/id"
	"github.com/EI94/Urbanova-sub017/internal/queue"
	"github.com/EI94/Urbanova-sub017/internal/replan"
	"github.com/EI94/Urbanova-sub017/internal/trigger"
)

type Services struct {
	stores    StoreProvider
	txRunner  TxRunner
	notifier  queue.Notifier
	replanCfg replan.Config
	newID     func() int64
	now       func() time.Time
}

func NewServices(stores StoreProvider, txRunner TxRunner, notifier queue.Notifier, replanCfg replan.Config) *Services {
	return &Services{
		stores:    stores,
		txRunner:  txRunner,
		notifier:  notifier,
		replanCfg: replanCfg,
		newID:     id.New,
		now:       time.Now,
	}
}

func (s *Services) Timelines() TimelineService {
	return NewTimelineService(s.stores, s.now)
}

func (s *Services) Lifecycle() LifecycleService {
	return NewLifecycleService(s.stores, s.txRunner, s.notifier, s.now)
}

func (s *Services) Replan() ReplanService {
	return NewReplanService(
		s.stores,
		s.txRunner,
		trigger.NewDetector(s.newID, s.now),
		replan.NewGenerator(s.replanCfg, s.newID, s.now),
		s.Lifecycle(),
		s.notifier,
		s.now,
	)
}
