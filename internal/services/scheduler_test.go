package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	fn   func(ctx context.Context, now time.Time) error

	mu   sync.Mutex
	runs []time.Time
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Run(ctx context.Context, now time.Time) error {
	j.mu.Lock()
	j.runs = append(j.runs, now)
	j.mu.Unlock()
	if j.fn == nil {
		return nil
	}
	return j.fn(ctx, now)
}

func (j *funcJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.runs)
}

func TestSchedulerNextRun(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	tests := []struct {
		name string
		opts SchedulerOptions
		now  time.Time
		want time.Time
	}{
		{
			name: "midnight UTC later today",
			opts: SchedulerOptions{},
			now:  utcAt(2025, 7, 15, 13, 0),
			want: utcAt(2025, 7, 16, 0, 0),
		},
		{
			name: "exactly at fire time moves to tomorrow",
			opts: SchedulerOptions{Hour: 6, Minute: 30},
			now:  utcAt(2025, 7, 15, 6, 30),
			want: utcAt(2025, 7, 16, 6, 30),
		},
		{
			name: "before fire time stays today",
			opts: SchedulerOptions{Hour: 6, Minute: 30},
			now:  utcAt(2025, 7, 15, 6, 29),
			want: utcAt(2025, 7, 15, 6, 30),
		},
		{
			name: "month rollover",
			opts: SchedulerOptions{Hour: 1},
			now:  utcAt(2024, 12, 31, 2, 0),
			want: utcAt(2025, 1, 1, 1, 0),
		},
		{
			name: "local timezone across DST change",
			opts: SchedulerOptions{Hour: 9, Location: rome},
			now:  time.Date(2025, 3, 29, 10, 0, 0, 0, rome),
			want: time.Date(2025, 3, 30, 9, 0, 0, 0, rome),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(tt.opts)
			got := s.NextRun(tt.now)
			assert.True(t, got.Equal(tt.want), "NextRun() = %v, want %v", got, tt.want)
		})
	}
}

func TestSchedulerRunOnceIsolatesFailures(t *testing.T) {
	failing := &funcJob{name: "failing", fn: func(context.Context, time.Time) error { return errors.New("boom") }}
	panicking := &funcJob{name: "panicking", fn: func(context.Context, time.Time) error { panic("bad state") }}
	healthy := &funcJob{name: "healthy"}

	s := NewScheduler(SchedulerOptions{}, failing, panicking)
	s.Register(healthy)
	assert.Equal(t, []string{"failing", "panicking", "healthy"}, s.Jobs())

	now := utcAt(2025, 8, 1, 0, 0)
	failed := s.RunOnce(context.Background(), now)

	assert.Equal(t, 2, failed)
	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, now, healthy.runs[0])
}

func TestSchedulerRunOnStartAndStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := &funcJob{name: "stopper", fn: func(context.Context, time.Time) error {
		cancel()
		return nil
	}}
	s := NewScheduler(SchedulerOptions{RunOnStart: true}, job)

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, job.count())
}

func TestSchedulerRunFiresAtNextRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fixed := time.Date(2025, 7, 15, 23, 59, 59, 990_000_000, time.UTC)
	job := &funcJob{name: "tick", fn: func(context.Context, time.Time) error {
		cancel()
		return nil
	}}
	s := NewScheduler(SchedulerOptions{}, job)
	s.now = func() time.Time { return fixed }

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, job.count())
	assert.Equal(t, fixed, job.runs[0])
}
