package numbering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

type fakeRedis struct {
	counters map[string]int64
	err      error
	keys     []string
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func TestRedisSequencerPerYearKeys(t *testing.T) {
	fake := &fakeRedis{counters: map[string]int64{}}
	seq := &RedisSequencer{client: fake, keyPrefix: "ft"}
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := seq.Next(ctx, 2025)
		if err != nil || got != want {
			t.Fatalf("next: want %d got %d (%v)", want, got, err)
		}
	}
	if got, _ := seq.Next(ctx, 2026); got != 1 {
		t.Fatalf("new year restarts at 1, got %d", got)
	}
	if fake.keys[0] != "ft:ticket_seq:2025" || fake.keys[3] != "ft:ticket_seq:2026" {
		t.Fatalf("keys: %v", fake.keys)
	}

	fake.err = errors.New("redis down")
	if _, err := seq.Next(ctx, 2025); err == nil {
		t.Fatalf("expected redis error")
	}
}

func TestNextTicketNumber(t *testing.T) {
	clock := domain.FixedClock(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))
	seq := NewMemorySequencer()
	ctx := context.Background()

	first, err := NextTicketNumber(ctx, seq, clock)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, _ := NextTicketNumber(ctx, seq, clock)
	if first.String() != "TICK-2025-00001" || second.String() != "TICK-2025-00002" {
		t.Fatalf("numbers: %s %s", first, second)
	}

	failing := sequencerFunc(func(context.Context, int) (int, error) { return 0, errors.New("boom") })
	if _, err := NextTicketNumber(ctx, failing, clock); err == nil {
		t.Fatalf("sequencer failure must surface")
	}
	overflow := sequencerFunc(func(context.Context, int) (int, error) { return 100000, nil })
	if _, err := NextTicketNumber(ctx, overflow, clock); !domain.IsKind(err, domain.KindInvalidArgument) {
		t.Fatalf("overflow must be rejected by the number format, got %v", err)
	}
}

func TestMemorySequencerConcurrent(t *testing.T) {
	seq := NewMemorySequencer()
	var wg sync.WaitGroup
	seen := make(chan int, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, _ := seq.Next(context.Background(), 2025)
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)
	unique := map[int]bool{}
	for n := range seen {
		unique[n] = true
	}
	if len(unique) != 100 {
		t.Fatalf("duplicates handed out: %d unique", len(unique))
	}
}

type sequencerFunc func(context.Context, int) (int, error)

func (f sequencerFunc) Next(ctx context.Context, year int) (int, error) { return f(ctx, year) }
