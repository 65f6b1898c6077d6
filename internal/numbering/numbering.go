// Package numbering hands out per-year ticket sequence numbers.
package numbering

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/daniel-kazarnowicz-baumalog/flowertrack/internal/domain"
)

// Sequencer returns the next sequential number for a year, starting at 1.
type Sequencer interface {
	Next(ctx context.Context, year int) (int, error)
}

// NextTicketNumber draws the next number for the clock's current year.
func NextTicketNumber(ctx context.Context, seq Sequencer, clock domain.Clock) (domain.TicketNumber, error) {
	year := clock.Now().UTC().Year()
	n, err := seq.Next(ctx, year)
	if err != nil {
		return domain.TicketNumber{}, fmt.Errorf("next ticket sequence: %w", err)
	}
	return domain.NewTicketNumber(year, n, clock)
}

type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisSequencer keeps one counter per year so numbers stay unique across API replicas.
type RedisSequencer struct {
	client    incrementer
	keyPrefix string
}

// NewRedisSequencer creates a sequencer on the given client.
func NewRedisSequencer(client *redis.Client, keyPrefix string) *RedisSequencer {
	if keyPrefix == "" {
		keyPrefix = "flowertrack"
	}
	return &RedisSequencer{client: client, keyPrefix: keyPrefix}
}

func (s *RedisSequencer) key(year int) string {
	return fmt.Sprintf("%s:ticket_seq:%d", s.keyPrefix, year)
}

// Next increments the counter for year.
func (s *RedisSequencer) Next(ctx context.Context, year int) (int, error) {
	n, err := s.client.Incr(ctx, s.key(year)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// MemorySequencer is a process-local sequencer.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[int]int
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[int]int)}
}

func (s *MemorySequencer) Next(ctx context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[year]++
	return s.counters[year], nil
}
