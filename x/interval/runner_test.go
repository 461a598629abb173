package interval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalRunnerInitialEmissionFromAnchor(t *testing.T) {
	t.Parallel()

	tick := 20 * time.Millisecond
	anchor := time.Unix(1000, 0)

	var (
		mu      sync.Mutex
		current = anchor.Add(5 * tick)
	)

	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	setNow := func(t time.Time) {
		mu.Lock()
		current = t
		mu.Unlock()
	}

	events := make(chan Tick, 10)
	runner := NewLocalRunner(Config{
		Handler: func(ctx context.Context, tk Tick) error {
			events <- tk
			return nil
		},
		Interval: tick,
		Anchor:   anchor,
		Now:      now,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, runner.Start(ctx))
	defer runner.Stop(context.Background())

	select {
	case tk := <-events:
		require.Equal(t, uint64(5), tk.Seq)
		require.WithinDuration(t, anchor.Add(5*tick), tk.StartedAt, time.Millisecond)
		require.Equal(t, tick, tk.Interval)
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for initial tick emission")
	}

	setNow(anchor.Add(8 * tick))
	time.Sleep(tick)

	for _, expectedSeq := range []uint64{6, 7, 8} {
		select {
		case tk := <-events:
			require.Equal(t, expectedSeq, tk.Seq)
			require.WithinDuration(t, anchor.Add(time.Duration(expectedSeq)*tick), tk.StartedAt, time.Millisecond)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for catch-up tick %d", expectedSeq)
		}
	}
}

func TestLocalRunnerWaitsForAnchor(t *testing.T) {
	t.Parallel()

	tick := 15 * time.Millisecond
	anchor := time.Unix(2000, 0)

	var (
		mu      sync.Mutex
		current = anchor.Add(-tick / 2)
	)

	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	setNow := func(t time.Time) {
		mu.Lock()
		current = t
		mu.Unlock()
	}

	events := make(chan Tick, 2)
	runner := NewLocalRunner(Config{
		Handler: func(ctx context.Context, tk Tick) error {
			events <- tk
			return nil
		},
		Interval: tick,
		Anchor:   anchor,
		Now:      now,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, runner.Start(ctx))
	defer runner.Stop(context.Background())

	select {
	case <-events:
		t.Fatalf("unexpected tick emitted before anchor")
	default:
	}

	time.Sleep(tick / 4)
	select {
	case <-events:
		t.Fatalf("unexpected tick emitted before advancing time to anchor")
	default:
	}

	setNow(anchor)
	time.Sleep(tick)

	select {
	case tk := <-events:
		require.Equal(t, uint64(0), tk.Seq)
		require.WithinDuration(t, anchor, tk.StartedAt, time.Millisecond)
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for first tick at anchor")
	}
}

func TestLocalRunnerTickForTime(t *testing.T) {
	t.Parallel()

	anchor := time.Unix(3000, 0)
	runner := NewLocalRunner(Config{
		Handler:  func(context.Context, Tick) error { return nil },
		Interval: time.Second,
		Anchor:   anchor,
	})

	seq, start := runner.TickForTime(anchor.Add(-time.Minute))
	require.Equal(t, uint64(0), seq)
	require.Equal(t, anchor, start)

	seq, start = runner.TickForTime(anchor.Add(90 * time.Second))
	require.Equal(t, uint64(90), seq)
	require.Equal(t, anchor.Add(90*time.Second), start)
}
