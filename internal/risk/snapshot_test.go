package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"obx-bot/internal/config"

	"go.uber.org/zap"
)

type memStore struct {
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key, value string) error {
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func (s *memStore) Close() error { return nil }

func TestRestoreSameDaySnapshot(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{now: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)}

	first, err := NewManager(config.DefaultStrategy(), 10000, clock, NewSnapshotSaver(store, zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("manager init failed: %v", err)
	}
	first.RecordLoss(-220)
	if err := first.CanTradeGeneral(); !errors.Is(err, ErrDailyLossLimit) {
		t.Fatalf("expected daily block, got %v", err)
	}

	// restart: a fresh manager must come back blocked for the same day
	second, err := NewManager(config.DefaultStrategy(), 10000, clock, NewSnapshotSaver(store, zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("manager init failed: %v", err)
	}
	if err := Restore(context.Background(), store, second); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if err := second.CanTradeGeneral(); !errors.Is(err, ErrDailyLossLimit) {
		t.Fatalf("expected restored daily block, got %v", err)
	}
	st := second.Status()
	if st.DailyPnLUSD != -220 || st.ConsecutiveLosses != 1 {
		t.Fatalf("unexpected restored state: %+v", st)
	}
}

func TestRestoreIgnoresForeignDay(t *testing.T) {
	store := newMemStore()
	yesterday := &fakeClock{now: time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)}
	old, err := NewManager(config.DefaultStrategy(), 10000, yesterday, NewSnapshotSaver(store, zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("manager init failed: %v", err)
	}
	old.RecordLoss(-220)

	today := &fakeClock{now: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)}
	fresh, err := NewManager(config.DefaultStrategy(), 10000, today, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("manager init failed: %v", err)
	}
	if err := Restore(context.Background(), store, fresh); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if err := fresh.CanTradeGeneral(); err != nil {
		t.Fatalf("expected yesterday's snapshot to be ignored, got %v", err)
	}
	if st := fresh.Status(); st.DailyPnLUSD != 0 {
		t.Fatalf("expected clean daily pnl, got %f", st.DailyPnLUSD)
	}
}

func TestRestoreNilStoreIsNoop(t *testing.T) {
	m, _ := newTestManager(t, 10000)
	if err := Restore(context.Background(), nil, m); err != nil {
		t.Fatalf("expected nil store to be a no-op, got %v", err)
	}
	if NewSnapshotSaver(nil, zap.NewNop()) != nil {
		t.Fatalf("expected nil saver for nil store")
	}
}
