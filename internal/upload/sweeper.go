// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/novatune/backend/internal/logging"
)

// Sweeper runs Core.Sweep on a fixed interval until stopped. It is the
// in-process periodic job the upload worker starts under its supervisor
// tree (internal/supervisor) alongside the ingestor consumer.
type Sweeper struct {
	core     *Core
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSweeper creates a Sweeper that calls core.Sweep every interval.
func NewSweeper(core *Core, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{core: core, interval: interval}
}

// Start begins the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("upload: sweeper already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	n, err := s.core.Sweep(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("upload: sweep failed")
		return
	}
	if n > 0 {
		logging.Info().Int("expired", n).Msg("upload: swept expired sessions")
	}
}
