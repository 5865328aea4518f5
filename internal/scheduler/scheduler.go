// Package scheduler runs periodic maintenance in the background.
package scheduler

import (
	"context"
	"log"
	"time"
)

// TokenPurger deletes refresh tokens that expired before now.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler purges expired refresh tokens on a fixed interval.
type Scheduler struct {
	tokens   TokenPurger
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	now      func() time.Time
}

func New(tokens TokenPurger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{tokens: tokens, interval: interval, now: time.Now}
}

// Start runs one cleanup immediately, then one per interval.
func (s *Scheduler) Start() {
	s.done = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)
	go s.run(s.done, s.ticker.C)
	log.Printf("Scheduler started (token cleanup: %s)", s.interval)
}

// Stop halts the ticker.
func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

func (s *Scheduler) run(done <-chan struct{}, tick <-chan time.Time) {
	s.CleanupTokens(context.Background())
	for {
		select {
		case <-done:
			return
		case <-tick:
			s.CleanupTokens(context.Background())
		}
	}
}

// CleanupTokens runs a single purge and logs the outcome.
func (s *Scheduler) CleanupTokens(ctx context.Context) {
	n, err := s.tokens.PurgeExpiredTokens(ctx, s.now())
	if err != nil {
		log.Printf("ERROR: token cleanup: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Token cleanup: deleted %d expired refresh tokens", n)
	}
}
