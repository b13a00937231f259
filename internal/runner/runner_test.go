package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"schemaplane/internal/store"
)

// MockStore implements Store for testing.
type MockStore struct {
	// ListFunc allows customizing ListApprovedGroups behavior per test.
	ListFunc func(ctx context.Context, limit int) ([]uuid.UUID, error)
}

func (m *MockStore) ListApprovedGroups(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit)
	}
	return nil, nil
}

// MockExecutor implements Executor for testing.
type MockExecutor struct {
	mu sync.Mutex

	ExecuteFunc func(ctx context.Context, groupID uuid.UUID) (*store.BatchResult, error)

	// Track executed group ids
	Executed []uuid.UUID
}

func (m *MockExecutor) ExecuteBatch(ctx context.Context, groupID uuid.UUID) (*store.BatchResult, error) {
	m.mu.Lock()
	m.Executed = append(m.Executed, groupID)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, groupID)
	}
	return &store.BatchResult{GroupID: groupID, Status: store.GroupStatusCompleted}, nil
}

func (m *MockExecutor) executedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Executed)
}

// Test: New() Function
func TestNew_DefaultConcurrency(t *testing.T) {
	r := New(&MockStore{}, &MockExecutor{}, Config{Concurrency: 0})

	if r.config.Concurrency != 1 {
		t.Errorf("expected default concurrency=1, got %d", r.config.Concurrency)
	}
}

func TestNew_DefaultPollInterval(t *testing.T) {
	r := New(&MockStore{}, &MockExecutor{}, Config{PollInterval: -5 * time.Second})

	if r.config.PollInterval != 1*time.Second {
		t.Errorf("expected default poll interval=1s, got %v", r.config.PollInterval)
	}
}

func TestNew_DefaultBatchLimit(t *testing.T) {
	r := New(&MockStore{}, &MockExecutor{}, Config{})

	if r.config.BatchLimit != 10 {
		t.Errorf("expected default batch limit=10, got %d", r.config.BatchLimit)
	}
	if r.config.MaxBackoff != 30*time.Second {
		t.Errorf("expected default max backoff=30s, got %v", r.config.MaxBackoff)
	}
}

func TestNew_CustomConfig(t *testing.T) {
	config := Config{
		ID:           "test-runner",
		Concurrency:  5,
		PollInterval: 500 * time.Millisecond,
		BatchLimit:   3,
	}

	r := New(&MockStore{}, &MockExecutor{}, config)

	if r.config.ID != "test-runner" {
		t.Errorf("expected ID='test-runner', got '%s'", r.config.ID)
	}
	if r.config.Concurrency != 5 {
		t.Errorf("expected concurrency=5, got %d", r.config.Concurrency)
	}
	if r.config.BatchLimit != 3 {
		t.Errorf("expected batch limit=3, got %d", r.config.BatchLimit)
	}
}

func TestNew_DoneChannelInitialized(t *testing.T) {
	r := New(&MockStore{}, &MockExecutor{}, Config{})

	if r.done == nil {
		t.Error("expected done channel to be initialized")
	}

	select {
	case <-r.done:
		t.Error("done channel should not be closed initially")
	default:
		// Expected
	}
}

// Test: Run() Loop Behavior
func TestRun_GracefulShutdown(t *testing.T) {
	s := &MockStore{
		ListFunc: func(ctx context.Context, limit int) ([]uuid.UUID, error) {
			return nil, nil
		},
	}

	r := New(s, &MockExecutor{}, Config{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	// Let it run for a bit
	time.Sleep(50 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Error("Run() did not exit in time")
	}
}

func TestRun_DoneChannelClosed(t *testing.T) {
	r := New(&MockStore{}, &MockExecutor{}, Config{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())

	go r.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-r.Done():
		// Success - channel was closed
	case <-time.After(1 * time.Second):
		t.Error("Done() channel was not closed after shutdown")
	}
}

func TestRun_ExecutesApprovedGroups(t *testing.T) {
	groupID := uuid.New()

	var served int32
	s := &MockStore{
		ListFunc: func(ctx context.Context, limit int) ([]uuid.UUID, error) {
			// Serve the group exactly once, then report an empty queue.
			if atomic.CompareAndSwapInt32(&served, 0, 1) {
				return []uuid.UUID{groupID}, nil
			}
			return nil, nil
		},
	}

	exec := &MockExecutor{}
	r := New(s, exec, Config{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown timeout")
	}

	if exec.executedCount() != 1 {
		t.Fatalf("expected 1 execution, got %d", exec.executedCount())
	}
	if exec.Executed[0] != groupID {
		t.Errorf("expected group %s, got %s", groupID, exec.Executed[0])
	}
}

func TestRun_ConcurrencyLimit(t *testing.T) {
	var running int32
	var maxConcurrent int32
	var mu sync.Mutex

	s := &MockStore{
		ListFunc: func(ctx context.Context, limit int) ([]uuid.UUID, error) {
			ids := make([]uuid.UUID, 0, limit)
			for i := 0; i < limit; i++ {
				ids = append(ids, uuid.New())
			}
			return ids, nil
		},
	}

	exec := &MockExecutor{
		ExecuteFunc: func(ctx context.Context, groupID uuid.UUID) (*store.BatchResult, error) {
			current := atomic.AddInt32(&running, 1)
			mu.Lock()
			if current > maxConcurrent {
				maxConcurrent = current
			}
			mu.Unlock()

			// Simulate work
			time.Sleep(100 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return &store.BatchResult{GroupID: groupID, Status: store.GroupStatusCompleted}, nil
		},
	}

	concurrencyLimit := 3
	r := New(s, exec, Config{
		Concurrency:  concurrencyLimit,
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	// Let batches accumulate
	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown timeout")
	}

	if int(maxConcurrent) > concurrencyLimit {
		t.Errorf("max concurrent batches=%d exceeded limit=%d", maxConcurrent, concurrencyLimit)
	}
}

func TestRun_DoesNotDispatchSameGroupTwice(t *testing.T) {
	groupID := uuid.New()

	// List keeps returning the same group, as the store would while the
	// batch has not yet been marked running.
	s := &MockStore{
		ListFunc: func(ctx context.Context, limit int) ([]uuid.UUID, error) {
			return []uuid.UUID{groupID}, nil
		},
	}

	exec := &MockExecutor{
		ExecuteFunc: func(ctx context.Context, groupID uuid.UUID) (*store.BatchResult, error) {
			time.Sleep(200 * time.Millisecond)
			return &store.BatchResult{GroupID: groupID, Status: store.GroupStatusCompleted}, nil
		},
	}

	r := New(s, exec, Config{Concurrency: 4, PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown timeout")
	}

	if exec.executedCount() != 1 {
		t.Errorf("expected group to be dispatched once, got %d executions", exec.executedCount())
	}
}

func TestRun_ToleratesLostRace(t *testing.T) {
	groupID := uuid.New()

	var served int32
	s := &MockStore{
		ListFunc: func(ctx context.Context, limit int) ([]uuid.UUID, error) {
			if atomic.CompareAndSwapInt32(&served, 0, 1) {
				return []uuid.UUID{groupID}, nil
			}
			return nil, nil
		},
	}

	exec := &MockExecutor{
		ExecuteFunc: func(ctx context.Context, groupID uuid.UUID) (*store.BatchResult, error) {
			return nil, store.ErrAlreadyExecuting
		},
	}

	r := New(s, exec, Config{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()

	// The loop must keep running after a lost race, not panic or exit.
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown timeout")
	}

	if exec.executedCount() != 1 {
		t.Errorf("expected 1 attempt, got %d", exec.executedCount())
	}
}

func TestRun_ListErrorDoesNotStopLoop(t *testing.T) {
	var calls int32
	s := &MockStore{
		ListFunc: func(ctx context.Context, limit int) ([]uuid.UUID, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("connection refused")
		},
	}

	r := New(s, &MockExecutor{}, Config{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("shutdown timeout")
	}

	if atomic.LoadInt32(&calls) < 2 {
		t.Errorf("expected the loop to keep polling after errors, got %d calls", calls)
	}
}
