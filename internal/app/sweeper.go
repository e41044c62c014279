package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweep deletes games not touched for longer than maxIdle and closes their
// subscribers. It returns the number of games removed.
func (s *Service) Sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, gs := range s.games {
		if !gs.Updated.Before(cutoff) {
			continue
		}
		for sub := range s.subs[id] {
			sub.close()
		}
		delete(s.subs, id)
		delete(s.games, id)
		removed++
	}
	if removed > 0 {
		s.log.Info("swept idle games", zap.Int("removed", removed), zap.Int("remaining", len(s.games)))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.log.Info("sweeper started", zap.Duration("interval", interval), zap.Duration("max_idle", maxIdle))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(maxIdle)
		}
	}
}
