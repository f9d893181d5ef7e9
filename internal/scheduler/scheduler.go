package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 5 * time.Minute

// Expirer expires lapsed subscriptions and reports how many were affected.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Scheduler runs the subscription expiry job on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	expirer Expirer
	log     *logrus.Logger
}

func New(spec string, expirer Expirer, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{log}),
			cron.WithChain(
				cron.Recover(cronLogger{log}),
				cron.SkipIfStillRunning(cronLogger{log}),
			),
		),
		expirer: expirer,
		log:     log,
	}
	if _, err := s.cron.AddFunc(spec, s.RunExpiry); err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunExpiry runs one expiry pass.
func (s *Scheduler) RunExpiry() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.expirer.ExpireDue(ctx)
	entry := s.log.WithField("duration", time.Since(start).String())
	if err != nil {
		entry.WithError(err).Error("subscription expiry failed")
		return
	}
	entry.WithField("expired", n).Debug("subscription expiry finished")
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger routes cron's own messages into logrus.
type cronLogger struct {
	log *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(kvFields(keysAndValues)).Error("cron: " + msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
