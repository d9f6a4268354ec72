package scheduler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		t.Fatalf("bad time %s: %v", s, err)
	}
	return ts
}

func TestNextDaily(t *testing.T) {
	cases := []struct {
		name  string
		after string
		hour  int
		min   int
		want  string
	}{
		{"before today's slot", "2024-01-15 00:00:00", 0, 5, "2024-01-15 00:05:00"},
		{"exactly at slot rolls over", "2024-01-15 00:05:00", 0, 5, "2024-01-16 00:05:00"},
		{"after today's slot", "2024-01-15 12:00:00", 0, 5, "2024-01-16 00:05:00"},
		{"month boundary", "2024-01-31 23:59:00", 0, 5, "2024-02-01 00:05:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextDaily(mustTime(t, tc.after), tc.hour, tc.min)
			if want := mustTime(t, tc.want); !got.Equal(want) {
				t.Errorf("NextDaily(%s) = %s, want %s", tc.after, got, want)
			}
		})
	}
}

func TestNextMonthly(t *testing.T) {
	cases := []struct {
		name  string
		after string
		day   int
		want  string
	}{
		{"before this month's slot", "2024-01-05 00:00:00", 10, "2024-01-10 00:05:00"},
		{"after this month's slot", "2024-01-15 00:00:00", 10, "2024-02-10 00:05:00"},
		{"year boundary", "2024-12-20 00:00:00", 10, "2025-01-10 00:05:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextMonthly(mustTime(t, tc.after), tc.day, 0, 5)
			if want := mustTime(t, tc.want); !got.Equal(want) {
				t.Errorf("NextMonthly(%s) = %s, want %s", tc.after, got, want)
			}
		})
	}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestSchedulerRunsDueJob(t *testing.T) {
	clock := &fakeClock{now: mustTime(t, "2024-01-15 00:04:59")}
	sched := New(clock, zap.NewNop())

	ran := make(chan struct{}, 1)
	sched.AddDaily("grouping", 0, 5, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	if len(sched.Jobs()) != 1 {
		t.Fatalf("jobs = %d, want 1", len(sched.Jobs()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Start(ctx)

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	sched := New(nil, zap.NewNop())
	sched.AddMonthly("invoicing", 10, 0, 5, func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
