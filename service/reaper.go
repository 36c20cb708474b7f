package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReapIdle deletes every stopped battle with no events for at least ttl and
// returns the ids it removed.
func (m *Manager) ReapIdle(ctx context.Context, ttl time.Duration) []string {
	if ttl <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-ttl).UnixMilli()

	m.mu.RLock()
	var stale []string
	for id, mb := range m.battles {
		if !mb.svc.Running() && mb.lastActive.Load() <= cutoff {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	reaped := stale[:0]
	for _, id := range stale {
		if err := m.Delete(ctx, id); err != nil {
			m.logger.Warn("reap battle failed", zap.String("battle_id", id), zap.Error(err))
			continue
		}
		reaped = append(reaped, id)
	}
	if len(reaped) > 0 {
		m.logger.Info("reaped idle battles", zap.Strings("battle_ids", reaped))
	}
	return reaped
}

// ScheduleReaper runs ReapIdle every interval until ctx is done.
func (m *Manager) ScheduleReaper(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapIdle(ctx, ttl)
		}
	}
}
