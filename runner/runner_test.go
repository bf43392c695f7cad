package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/dialogmesh/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// capturingProcessor records the activities it was handed.
type capturingProcessor struct {
	mu         sync.Mutex
	activities []core.Activity
}

func (c *capturingProcessor) ProcessTurn(ctx context.Context, conversationKey string, activity core.Activity) (*core.TurnResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activities = append(c.activities, activity)

	return &core.TurnResult{TurnID: core.NewID(), Outcome: core.TurnSuspended}, nil
}

// barrierProcessor parks every turn until released, reporting entries so
// tests can observe which turns run concurrently.
type barrierProcessor struct {
	entered chan string
	release chan struct{}
}

func newBarrierProcessor() *barrierProcessor {
	return &barrierProcessor{
		entered: make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (b *barrierProcessor) ProcessTurn(ctx context.Context, conversationKey string, activity core.Activity) (*core.TurnResult, error) {
	b.entered <- conversationKey
	<-b.release

	return &core.TurnResult{TurnID: core.NewID(), Outcome: core.TurnSuspended}, nil
}

func awaitEntry(t *testing.T, entered <-chan string) string {
	t.Helper()

	select {
	case key := <-entered:
		return key
	case <-time.After(2 * time.Second):
		t.Fatal("no turn entered the processor in time")
		return ""
	}
}

func assertNoEntry(t *testing.T, entered <-chan string) {
	t.Helper()

	select {
	case key := <-entered:
		t.Fatalf("unexpected concurrent turn for %q", key)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunner_SerializesTurnsForSameConversation(t *testing.T) {
	proc := newBarrierProcessor()
	r := New(proc)

	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := r.ProcessText(context.Background(), "conv-1", "hello")
			assert.NoError(t, err)
		}()
	}

	// Only one of the two turns may be inside the processor; the other
	// waits on the conversation lock.
	awaitEntry(t, proc.entered)
	assertNoEntry(t, proc.entered)

	proc.release <- struct{}{}
	awaitEntry(t, proc.entered)
	close(proc.release)

	wg.Wait()
}

func TestRunner_RunsDifferentConversationsInParallel(t *testing.T) {
	proc := newBarrierProcessor()
	r := New(proc)

	var wg sync.WaitGroup

	for _, key := range []string{"conv-a", "conv-b"} {
		wg.Add(1)

		go func(key string) {
			defer wg.Done()

			_, err := r.ProcessText(context.Background(), key, "hello")
			assert.NoError(t, err)
		}(key)
	}

	// Both turns sit inside the processor at once; neither has been
	// released yet.
	seen := map[string]bool{}
	seen[awaitEntry(t, proc.entered)] = true
	seen[awaitEntry(t, proc.entered)] = true
	assert.Len(t, seen, 2)

	close(proc.release)
	wg.Wait()
}

func TestRunner_ConcurrencyLimitBoundsParallelism(t *testing.T) {
	proc := newBarrierProcessor()
	r := New(proc, func(o *Options) {
		o.MaxConcurrentTurns = 2
	})

	var wg sync.WaitGroup

	for _, key := range []string{"conv-a", "conv-b", "conv-c"} {
		wg.Add(1)

		go func(key string) {
			defer wg.Done()

			_, err := r.ProcessText(context.Background(), key, "hello")
			assert.NoError(t, err)
		}(key)
	}

	awaitEntry(t, proc.entered)
	awaitEntry(t, proc.entered)
	assertNoEntry(t, proc.entered)

	proc.release <- struct{}{}
	awaitEntry(t, proc.entered)

	proc.release <- struct{}{}
	proc.release <- struct{}{}
	wg.Wait()
}

func TestRunner_ContextCanceledWhileWaitingForSlot(t *testing.T) {
	proc := newBarrierProcessor()
	r := New(proc, func(o *Options) {
		o.MaxConcurrentTurns = 1
	})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		_, err := r.ProcessText(context.Background(), "conv-a", "hello")
		assert.NoError(t, err)
	}()

	awaitEntry(t, proc.entered)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ProcessText(canceled, "conv-b", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(proc.release)
	wg.Wait()
}

func TestRunner_ProcessTextAndEvent(t *testing.T) {
	proc := &capturingProcessor{}
	r := New(proc)

	_, err := r.ProcessText(context.Background(), "conv-1", "hello there")
	require.NoError(t, err)

	_, err = r.ProcessEvent(context.Background(), "conv-1", "alarm.raised", map[string]any{"code": "red"})
	require.NoError(t, err)

	require.Len(t, proc.activities, 2)

	assert.Equal(t, core.ActivityMessage, proc.activities[0].Type)
	assert.Equal(t, "hello there", proc.activities[0].Text)

	assert.Equal(t, core.ActivityEvent, proc.activities[1].Type)
	assert.Equal(t, "alarm.raised", proc.activities[1].Name)
}

func TestRunner_LockTableShrinks(t *testing.T) {
	r := New(&capturingProcessor{})

	for i := 0; i < 5; i++ {
		_, err := r.ProcessText(context.Background(), "conv-1", "hello")
		require.NoError(t, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	assert.Empty(t, r.locks)
}
