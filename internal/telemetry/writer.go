// Package telemetry streams observability rows (market snapshots, risk
// status) into Timescale/Postgres on a background goroutine. Writes are
// best-effort: a full buffer drops the row and bumps a counter rather than
// backpressuring the decision path.
package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"obx-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

type SnapshotRow struct {
	Time      time.Time
	Symbol    string
	BestBid   float64
	BestAsk   float64
	Mid       float64
	SpreadPct float64
	BidDepth  float64
	AskDepth  float64
	Trades    int
	Decision  string
}

type RiskRow struct {
	Time              time.Time
	State             string
	ConsecutiveLosses int
	DailyPnLUSD       float64
	DailyLossPct      float64
}

type Writer struct {
	db     *sql.DB
	log    *zap.Logger
	schema string

	snapshots chan SnapshotRow
	riskRows  chan RiskRow

	started   atomic.Bool
	dropSnaps atomic.Uint64
	dropRisk  atomic.Uint64
}

// New returns nil when telemetry is disabled; callers treat a nil Writer as a
// no-op sink.
func New(cfg config.TelemetryConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("telemetry dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Writer{
		db:        db,
		log:       log,
		schema:    schema,
		snapshots: make(chan SnapshotRow, 1024),
		riskRows:  make(chan RiskRow, 256),
	}, nil
}

func (w *Writer) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}
	if err := w.initSchema(ctx); err != nil {
		return err
	}
	go w.run(ctx)
	return nil
}

func (w *Writer) initSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.obx_snapshots (
			time TIMESTAMPTZ NOT NULL,
			symbol TEXT NOT NULL,
			best_bid DOUBLE PRECISION NOT NULL,
			best_ask DOUBLE PRECISION NOT NULL,
			mid DOUBLE PRECISION NOT NULL,
			spread_pct DOUBLE PRECISION NOT NULL,
			bid_depth DOUBLE PRECISION NOT NULL,
			ask_depth DOUBLE PRECISION NOT NULL,
			trades INT NOT NULL,
			decision TEXT NOT NULL
		)`, w.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.obx_risk_status (
			time TIMESTAMPTZ NOT NULL,
			state TEXT NOT NULL,
			consecutive_losses INT NOT NULL,
			daily_pnl_usd DOUBLE PRECISION NOT NULL,
			daily_loss_pct DOUBLE PRECISION NOT NULL
		)`, w.schema),
	}
	for _, stmt := range stmts {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshot enqueues a row, dropping it if the buffer is full.
func (w *Writer) WriteSnapshot(row SnapshotRow) {
	if w == nil {
		return
	}
	select {
	case w.snapshots <- row:
	default:
		w.dropSnaps.Add(1)
	}
}

func (w *Writer) WriteRisk(row RiskRow) {
	if w == nil {
		return
	}
	select {
	case w.riskRows <- row:
	default:
		w.dropRisk.Add(1)
	}
}

func (w *Writer) DroppedSnapshots() uint64 {
	if w == nil {
		return 0
	}
	return w.dropSnaps.Load()
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case row := <-w.snapshots:
			w.insertSnapshot(row)
		case row := <-w.riskRows:
			w.insertRisk(row)
		}
	}
}

func (w *Writer) insertSnapshot(row SnapshotRow) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	stmt := fmt.Sprintf(`INSERT INTO %s.obx_snapshots
		(time, symbol, best_bid, best_ask, mid, spread_pct, bid_depth, ask_depth, trades, decision)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, w.schema)
	if _, err := w.db.ExecContext(ctx, stmt,
		row.Time, row.Symbol, row.BestBid, row.BestAsk, row.Mid,
		row.SpreadPct, row.BidDepth, row.AskDepth, row.Trades, row.Decision,
	); err != nil {
		w.log.Warn("snapshot telemetry insert failed", zap.Error(err))
	}
}

func (w *Writer) insertRisk(row RiskRow) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	stmt := fmt.Sprintf(`INSERT INTO %s.obx_risk_status
		(time, state, consecutive_losses, daily_pnl_usd, daily_loss_pct)
		VALUES ($1, $2, $3, $4, $5)`, w.schema)
	if _, err := w.db.ExecContext(ctx, stmt,
		row.Time, row.State, row.ConsecutiveLosses, row.DailyPnLUSD, row.DailyLossPct,
	); err != nil {
		w.log.Warn("risk telemetry insert failed", zap.Error(err))
	}
}

func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	return w.db.Close()
}
