package numerator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "padihub/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences upsert: every call advances the
// counter by the requested increment and returns the new value.
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	calls        int
}

func (m *mockQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	m.calls++
	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("PR")
	year := time.Now().Format("2006")

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("PR-%s-00001", year); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("PR-%s-00002", year); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("SL")

	opts := &corenumerator.Options{
		Strategy:  corenumerator.StrategyCached,
		RangeSize: 10,
	}

	// The first call reserves a range; the next nine come from memory.
	for i := 1; i <= 10; i++ {
		num, err := svc.GetNextNumber(ctx, cfg, opts, time.Now())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := fmt.Sprintf("SL-%s-%05d", time.Now().Format("2006"), i)
		if num != want {
			t.Errorf("expected %s, got %s", want, num)
		}
	}
	if q.calls != 1 {
		t.Errorf("expected 1 DB round-trip for the range, got %d", q.calls)
	}

	// The 11th number triggers a new reservation.
	if _, err := svc.GetNextNumber(ctx, cfg, opts, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.calls != 2 {
		t.Errorf("expected a second DB round-trip, got %d", q.calls)
	}
}

func TestBuildKey(t *testing.T) {
	svc := New(&mockQuerier{})
	period := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		resetPeriod string
		want        string
	}{
		{"year", "PR_2026"},
		{"month", "PR_2026_08"},
		{"never", "PR"},
	}

	for _, tt := range tests {
		cfg := corenumerator.Config{Prefix: "PR", ResetPeriod: tt.resetPeriod}
		if got := svc.buildKey(cfg, period); got != tt.want {
			t.Errorf("buildKey(%q) = %q, want %q", tt.resetPeriod, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	svc := New(&mockQuerier{})
	period := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	cfg := corenumerator.DefaultConfig("PR")
	if got := svc.formatNumber(cfg, period, 42); got != "PR-2026-00042" {
		t.Errorf("unexpected number: %s", got)
	}

	cfg.IncludeYear = false
	if got := svc.formatNumber(cfg, period, 42); got != "PR-00042" {
		t.Errorf("unexpected number: %s", got)
	}
}

func TestParseNumber(t *testing.T) {
	if got := ParseNumber("PR-2026-00042"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := ParseNumber("PR-00042"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := ParseNumber("garbage"); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
	if got := ParseNumber("PR-"); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}
