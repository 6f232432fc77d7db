// Package risk owns the persistent trading-permission state: consecutive-loss
// cooldowns, the daily loss guard, and the per-tick volatility brake. All
// mutation happens behind one mutex; callers interact only through CanTrade,
// RecordWin, RecordLoss and Status.
package risk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"obx-bot/internal/config"
	"obx-bot/internal/market"

	"go.uber.org/zap"
)

var (
	ErrDailyLossLimit  = errors.New("daily loss limit reached")
	ErrCooldownActive  = errors.New("consecutive-loss cooldown active")
	ErrVolatilityBrake = errors.New("spread above volatility ceiling")
)

type State string

const (
	StateActive       State = "ACTIVE"
	StateCooldown     State = "COOLDOWN"
	StateDailyBlocked State = "DAILY_BLOCKED"
)

// Status is a point-in-time copy of the guard state. Two consecutive calls
// with no intervening RecordWin/RecordLoss or rollover return equal values.
type Status struct {
	State             State
	ConsecutiveLosses int
	DailyPnLUSD       float64
	DailyLossPct      float64
	StartingEquityUSD float64
	Day               string
	CooldownRemaining time.Duration
}

type Manager struct {
	cfg   config.StrategyConfig
	clock Clock
	log   *zap.Logger
	saver *SnapshotSaver

	mu                sync.Mutex
	consecutiveLosses int
	lastLossAt        time.Time
	cooldown          bool
	dailyBlocked      bool
	dailyPnL          float64
	startingEquity    float64
	day               string
}

// NewManager builds the guard with the given starting equity. A non-positive
// equity is a configuration error and fails construction.
func NewManager(cfg config.StrategyConfig, equityUSD float64, clock Clock, saver *SnapshotSaver, log *zap.Logger) (*Manager, error) {
	if equityUSD <= 0 {
		return nil, fmt.Errorf("starting equity must be > 0, got %.2f", equityUSD)
	}
	if clock == nil {
		clock = NewClock()
	}
	m := &Manager{
		cfg:            cfg,
		clock:          clock,
		log:            log,
		saver:          saver,
		startingEquity: equityUSD,
		day:            clock.Day(),
	}
	return m, nil
}

// CanTrade is the single permission gate the engine calls per tick: general
// guard state first, then the snapshot-dependent volatility brake.
func (m *Manager) CanTrade(snap market.MarketSnapshot) error {
	if err := m.CanTradeGeneral(); err != nil {
		return err
	}
	return m.CheckVolatility(snap)
}

// CanTradeGeneral covers the persistent state only: daily loss block and
// consecutive-loss cooldown. Cooldown expiry is evaluated lazily here; there
// is no background timer.
func (m *Manager) CanTradeGeneral() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	if m.dailyBlocked {
		return fmt.Errorf("daily loss %.4f of equity: %w", m.dailyLossPctLocked(), ErrDailyLossLimit)
	}
	if m.cooldown {
		elapsed := m.clock.Now().Sub(m.lastLossAt)
		if elapsed <= m.cfg.CooldownAfterLosses {
			return fmt.Errorf("%s remaining: %w", m.cfg.CooldownAfterLosses-elapsed, ErrCooldownActive)
		}
		m.cooldown = false
		m.persistLocked()
	}
	return nil
}

// CheckVolatility is the per-tick brake: it reads only the snapshot and the
// config, touches no persistent state, and does not count as a loss.
func (m *Manager) CheckVolatility(snap market.MarketSnapshot) error {
	if snap.SpreadPct > m.cfg.MaxVolatilityPct {
		return fmt.Errorf("spread %.6f > %.6f: %w", snap.SpreadPct, m.cfg.MaxVolatilityPct, ErrVolatilityBrake)
	}
	return nil
}

// RecordWin applies a realized non-negative outcome: daily P&L moves, the
// loss streak resets, and any cooldown clears immediately.
func (m *Manager) RecordWin(pnlUSD float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	m.dailyPnL += pnlUSD
	m.consecutiveLosses = 0
	m.cooldown = false
	m.persistLocked()
}

// RecordLoss applies a realized loss (pnlUSD negative), extends the streak,
// and arms the cooldown or the daily block when their thresholds are hit.
func (m *Manager) RecordLoss(pnlUSD float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	m.dailyPnL += pnlUSD
	m.consecutiveLosses++
	m.lastLossAt = m.clock.Now()
	if m.consecutiveLosses >= m.cfg.MaxConsecutiveLosses {
		m.cooldown = true
	}
	if m.dailyLossPctLocked() >= m.cfg.MaxDailyLossPct {
		m.dailyBlocked = true
	}
	m.persistLocked()
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	st := Status{
		State:             StateActive,
		ConsecutiveLosses: m.consecutiveLosses,
		DailyPnLUSD:       m.dailyPnL,
		DailyLossPct:      m.dailyLossPctLocked(),
		StartingEquityUSD: m.startingEquity,
		Day:               m.day,
	}
	if m.cooldown {
		if remaining := m.cfg.CooldownAfterLosses - m.clock.Now().Sub(m.lastLossAt); remaining > 0 {
			st.State = StateCooldown
			st.CooldownRemaining = remaining
		}
	}
	if m.dailyBlocked {
		st.State = StateDailyBlocked
		st.CooldownRemaining = 0
	}
	return st
}

// EquityUSD is the sizing equity: starting equity adjusted by the day's
// running P&L, so position sizes shrink as the day draws down.
func (m *Manager) EquityUSD() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	return m.startingEquity + m.dailyPnL
}

func (m *Manager) dailyLossPctLocked() float64 {
	if m.dailyPnL >= 0 || m.startingEquity <= 0 {
		return 0
	}
	return -m.dailyPnL / m.startingEquity
}

// rolloverLocked resets the daily guard when the calendar day advances:
// equity rolls forward by the closed day's P&L, the block clears, and the
// cooldown state stays whatever the loss streak dictates.
func (m *Manager) rolloverLocked() {
	today := m.clock.Day()
	if today == m.day {
		return
	}
	m.startingEquity += m.dailyPnL
	m.dailyPnL = 0
	m.dailyBlocked = false
	m.day = today
	if m.log != nil {
		m.log.Info("risk day rolled over",
			zap.String("day", today),
			zap.Float64("starting_equity_usd", m.startingEquity),
		)
	}
	m.persistLocked()
}

func (m *Manager) persistLocked() {
	if m.saver == nil {
		return
	}
	m.saver.save(daySnapshot{
		Day:               m.day,
		StartingEquityUSD: m.startingEquity,
		DailyPnLUSD:       m.dailyPnL,
		ConsecutiveLosses: m.consecutiveLosses,
		LastLossAtMS:      m.lastLossAt.UnixMilli(),
		Cooldown:          m.cooldown,
		DailyBlocked:      m.dailyBlocked,
	})
}

// restore seeds the guard from a persisted same-day snapshot so a restart
// cannot disarm the daily block. Snapshots from a previous day are ignored.
func (m *Manager) restore(snap daySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.Day != m.clock.Day() {
		return
	}
	m.day = snap.Day
	m.startingEquity = snap.StartingEquityUSD
	m.dailyPnL = snap.DailyPnLUSD
	m.consecutiveLosses = snap.ConsecutiveLosses
	m.lastLossAt = time.UnixMilli(snap.LastLossAtMS).UTC()
	m.cooldown = snap.Cooldown
	m.dailyBlocked = snap.DailyBlocked
}
