package service

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultSweepInterval = 10 * time.Second
	defaultTypingTimeout = 5 * time.Second
)

// TypingSweeper гасит зависшие флаги «печатает»: клиент, умерший на середине
// набора, не должен печатать вечно.
type TypingSweeper struct {
	states   StateStore
	pub      Publisher
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func NewTypingSweeper(states StateStore, pub Publisher, interval, timeout time.Duration) *TypingSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if timeout <= 0 {
		timeout = defaultTypingTimeout
	}
	return &TypingSweeper{
		states:   states,
		pub:      pub,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Run blocks until the context is cancelled.
func (s *TypingSweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep clears every typing flag older than the timeout and tells the room.
func (s *TypingSweeper) Sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.timeout)
	expired, err := s.states.ExpiredTyping(ctx, cutoff)
	if err != nil {
		slog.Warn("typing sweep failed", "err", err)
		return
	}
	for _, st := range expired {
		if err := s.states.ClearTyping(ctx, st.ID); err != nil {
			slog.Warn("typing clear failed", "state", st.ID, "err", err)
			continue
		}
		s.pub.EmitToRoom(st.ChatID, EventUserTypingStopped, TypingPayload{
			UserID: st.UserID,
			ChatID: st.ChatID,
		})
	}
}
