package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Task func(ctx context.Context) error

// Scheduler fires one task on a cron spec. A tick that lands while the
// previous run is still going is skipped.
type Scheduler struct {
	cron *cron.Cron
	spec string
	name string
	log  *zap.Logger
}

// New validates spec (standard five field form or a descriptor such as
// "@every 6h").
func New(spec, name string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", spec, err)
	}
	clog := cronLogger{logger.Named("cron").Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		spec: spec,
		name: name,
		log:  logger.Named("scheduler"),
	}, nil
}

// Run blocks until ctx is done and then waits for an in-flight task.
func (s *Scheduler) Run(ctx context.Context, runOnStart bool, task Task) error {
	var mu sync.Mutex
	call := func() {
		// serializes the start-up run with the first tick
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := task(ctx); err != nil {
			s.log.Error("task failed", zap.String("task", s.name), zap.Error(err))
		}
	}

	if _, err := s.cron.AddFunc(s.spec, call); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.log.Info("cron started", zap.String("task", s.name), zap.String("spec", s.spec))

	var first sync.WaitGroup
	if runOnStart {
		first.Add(1)
		go func() {
			defer first.Done()
			call()
		}()
	}

	<-ctx.Done()
	<-s.cron.Stop().Done()
	first.Wait()
	s.log.Info("cron stopped", zap.String("task", s.name))
	return nil
}

type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.s.Errorw(msg, append(kv, "error", err)...)
}
