package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRetention     = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// Janitor evicts sessions once their age since creation exceeds the
// retention window. Activity does not extend a session's life.
type Janitor struct {
	registry  *Registry
	clock     clockwork.Clock
	retention time.Duration
	interval  time.Duration
	onEvict   func(Session) error
}

func NewJanitor(reg *Registry, clk clockwork.Clock, retention, interval time.Duration) *Janitor {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{registry: reg, clock: clk, retention: retention, interval: interval}
}

// OnEvict registers a hook run after each eviction. Hook errors are logged.
func (j *Janitor) OnEvict(fn func(Session) error) {
	j.onEvict = fn
}

func (j *Janitor) Start(ctx context.Context) {
	ticker := j.clock.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				j.Sweep(j.clock.Now())
			}
		}
	}()
}

// Sweep deletes every session older than the retention window at now and
// returns the evicted ids.
func (j *Janitor) Sweep(now time.Time) []string {
	var evicted []string
	j.registry.ForEach(func(sess Session) bool {
		if now.Sub(sess.CreatedAt) <= j.retention {
			return true
		}
		if !j.registry.Delete(sess.ID) {
			return true
		}
		evicted = append(evicted, sess.ID)
		log.Info().
			Str("session_id", sess.ID).
			Dur("age", now.Sub(sess.CreatedAt)).
			Msg("session_evicted")
		if err := j.runHook(sess); err != nil {
			log.Error().Err(err).Str("session_id", sess.ID).Msg("evict hook failed")
		}
		return true
	})
	return evicted
}

func (j *Janitor) runHook(sess Session) (err error) {
	if j.onEvict == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evict hook panic: %v", r)
		}
	}()
	return j.onEvict(sess)
}
