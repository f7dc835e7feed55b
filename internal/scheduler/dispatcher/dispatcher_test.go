package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/scheduler/store"
)

type memoryLeases struct {
	mu       sync.Mutex
	leases   map[uuid.UUID]string
	released []uuid.UUID
}

func newMemoryLeases() *memoryLeases {
	return &memoryLeases{leases: map[uuid.UUID]string{}}
}

func (m *memoryLeases) Claim(_ context.Context, id uuid.UUID, worker string, _, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.leases[id]; taken {
		return false, nil
	}
	m.leases[id] = worker
	return true, nil
}

func (m *memoryLeases) Release(_ context.Context, id uuid.UUID, worker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.leases[id] == worker {
		delete(m.leases, id)
	}
	m.released = append(m.released, id)
	return nil
}

type countingExecutor struct {
	mu      sync.Mutex
	calls   map[uuid.UUID]int
	fail    map[uuid.UUID]error
	delay   time.Duration
	running atomic.Int32
	maxSeen atomic.Int32
}

func newCountingExecutor() *countingExecutor {
	return &countingExecutor{calls: map[uuid.UUID]int{}, fail: map[uuid.UUID]error{}}
}

func (e *countingExecutor) Execute(ctx context.Context, s *models.ReportSchedule, _ string) error {
	n := e.running.Add(1)
	defer e.running.Add(-1)
	for {
		seen := e.maxSeen.Load()
		if n <= seen || e.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	e.mu.Lock()
	e.calls[s.ID]++
	err := e.fail[s.ID]
	e.mu.Unlock()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (e *countingExecutor) count(id uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[id]
}

func schedules(n int) []*models.ReportSchedule {
	out := make([]*models.ReportSchedule, n)
	for i := range out {
		out[i] = &models.ReportSchedule{ID: uuid.New(), OwnerID: uuid.New(), IsActive: true}
	}
	return out
}

func TestDispatch_OverlappingBatchesExecuteOnce(t *testing.T) {
	leases := newMemoryLeases()
	exec := newCountingExecutor()
	exec.delay = 50 * time.Millisecond
	d := NewDispatcher(leases, exec, Config{WorkerID: "w1", Workers: 4, ExecutionTimeout: time.Second})

	batch := schedules(5)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.DispatchBatch(context.Background(), batch)
		}()
	}
	wg.Wait()

	for _, s := range batch {
		assert.Equal(t, 1, exec.count(s.ID), "schedule %s", s.ID)
	}
	stats := d.Stats()
	assert.Equal(t, int64(5), stats.Succeeded)
	assert.Equal(t, int64(10), stats.Skipped)
}

func TestDispatch_FailureDoesNotBlockSiblings(t *testing.T) {
	leases := newMemoryLeases()
	exec := newCountingExecutor()
	batch := schedules(4)
	exec.fail[batch[1].ID] = errors.New("renderer exploded")

	d := NewDispatcher(leases, exec, Config{WorkerID: "w1", Workers: 2, ExecutionTimeout: time.Second})
	results := d.DispatchBatch(context.Background(), batch)

	require.Len(t, results, 4)
	for i, r := range results {
		if i == 1 {
			assert.False(t, r.Success)
			assert.Error(t, r.Error)
			continue
		}
		assert.True(t, r.Success)
	}

	// failed schedule gets its lease back, successful ones are cleared by RecordRun
	assert.Equal(t, []uuid.UUID{batch[1].ID}, leases.released)
	assert.Equal(t, int64(1), d.Stats().Failed)
}

func TestDispatch_LeaseLostIsNotReleased(t *testing.T) {
	leases := newMemoryLeases()
	exec := newCountingExecutor()
	batch := schedules(1)
	exec.fail[batch[0].ID] = store.ErrLeaseLost

	d := NewDispatcher(leases, exec, Config{WorkerID: "w1", Workers: 1})
	result := d.Dispatch(context.Background(), batch[0])

	assert.ErrorIs(t, result.Error, store.ErrLeaseLost)
	assert.Empty(t, leases.released)
}

func TestDispatch_TimeoutIsFailure(t *testing.T) {
	leases := newMemoryLeases()
	exec := newCountingExecutor()
	exec.delay = time.Second
	batch := schedules(1)

	d := NewDispatcher(leases, exec, Config{WorkerID: "w1", Workers: 1, ExecutionTimeout: 20 * time.Millisecond})
	result := d.Dispatch(context.Background(), batch[0])

	assert.ErrorIs(t, result.Error, context.DeadlineExceeded)
	assert.Len(t, leases.released, 1)
}

func TestDispatch_ClaimedElsewhereIsSkipped(t *testing.T) {
	leases := newMemoryLeases()
	exec := newCountingExecutor()
	batch := schedules(1)
	leases.leases[batch[0].ID] = "other-instance"

	d := NewDispatcher(leases, exec, Config{WorkerID: "w1", Workers: 1})
	result := d.Dispatch(context.Background(), batch[0])

	assert.True(t, result.Skipped)
	assert.Equal(t, 0, exec.count(batch[0].ID))
}

func TestDispatchBatch_BoundedConcurrency(t *testing.T) {
	leases := newMemoryLeases()
	exec := newCountingExecutor()
	exec.delay = 20 * time.Millisecond

	d := NewDispatcher(leases, exec, Config{WorkerID: "w1", Workers: 3, ExecutionTimeout: time.Second})
	d.DispatchBatch(context.Background(), schedules(12))

	assert.LessOrEqual(t, exec.maxSeen.Load(), int32(3))
	assert.Equal(t, int64(12), d.Stats().Succeeded)
}
