package risk

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"obx-bot/internal/state"

	"go.uber.org/zap"
)

const daySnapshotKey = "risk:day_snapshot"

// daySnapshot is the kv-store image of the guard's day state, written on
// every mutation so a same-day restart resumes with the guard still armed.
type daySnapshot struct {
	Day               string  `json:"day"`
	StartingEquityUSD float64 `json:"starting_equity_usd"`
	DailyPnLUSD       float64 `json:"daily_pnl_usd"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	LastLossAtMS      int64   `json:"last_loss_at_ms"`
	Cooldown          bool    `json:"cooldown"`
	DailyBlocked      bool    `json:"daily_blocked"`
}

// SnapshotSaver writes day snapshots best-effort; persistence failures are
// logged and never block a trading decision.
type SnapshotSaver struct {
	store   state.Store
	log     *zap.Logger
	timeout time.Duration
}

func NewSnapshotSaver(store state.Store, log *zap.Logger) *SnapshotSaver {
	if store == nil {
		return nil
	}
	return &SnapshotSaver{store: store, log: log, timeout: 2 * time.Second}
}

func (s *SnapshotSaver) save(snap daySnapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn("risk snapshot encode failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Set(ctx, daySnapshotKey, string(payload)); err != nil {
		s.log.Warn("risk snapshot persist failed", zap.Error(err))
	}
}

// Restore loads a persisted day snapshot into the manager. A missing or
// foreign-day snapshot leaves the freshly constructed state untouched.
func Restore(ctx context.Context, store state.Store, m *Manager) error {
	if store == nil {
		return nil
	}
	raw, ok, err := store.Get(ctx, daySnapshotKey)
	if err != nil {
		return err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	var snap daySnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return err
	}
	m.restore(snap)
	return nil
}
