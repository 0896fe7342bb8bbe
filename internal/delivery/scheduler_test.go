package delivery

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRuns(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Stop()

	var ran atomic.Bool
	task, err := s.Schedule("deliver m1", 10*time.Millisecond, func() { ran.Store(true) })
	require.NoError(t, err)
	assert.Equal(t, "deliver m1", task.Name())

	require.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Pending())
	assert.False(t, task.Cancel(), "Cancel after run should report false")
}

func TestCancelPreventsRun(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Stop()

	var ran atomic.Bool
	task, err := s.Schedule("deliver m1", 50*time.Millisecond, func() { ran.Store(true) })
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pending())

	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel(), "second Cancel should report false")
	assert.Equal(t, 0, s.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.False(t, ran.Load(), "cancelled task ran")
}

func TestCancelAll(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Stop()

	var runs atomic.Int32
	for i := 0; i < 5; i++ {
		_, err := s.Schedule("deliver", time.Hour, func() { runs.Add(1) })
		require.NoError(t, err)
	}
	assert.Equal(t, 5, s.Pending())
	assert.Equal(t, 5, s.CancelAll())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, int32(0), runs.Load())

	// The scheduler is still usable after CancelAll.
	_, err := s.Schedule("again", time.Millisecond, func() { runs.Add(1) })
	require.NoError(t, err)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestCancelAllWaitsForRunningTask(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Stop()

	started := make(chan struct{})
	var finished atomic.Bool
	_, err := s.Schedule("slow", 0, func() {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})
	require.NoError(t, err)

	<-started
	s.CancelAll()
	assert.True(t, finished.Load(), "CancelAll returned before the running task finished")
}

func TestStopRefusesNewWork(t *testing.T) {
	s := NewScheduler(nil)
	s.Stop()

	_, err := s.Schedule("late", time.Millisecond, func() {})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestPanickingTaskDoesNotLeak(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Stop()

	_, err := s.Schedule("boom", 0, func() { panic("boom") })
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.CancelAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CancelAll hung after a panicking task")
	}
}

// Sends racing a sign-out: Schedule and CancelAll from many goroutines must
// neither panic nor hang, and nothing may stay pending once both sides finish.
func TestConcurrentScheduleAndCancelAll(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Schedule("deliver", time.Duration(i%3)*time.Millisecond, func() {})
		}()
		go func() {
			defer wg.Done()
			s.CancelAll()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Schedule/CancelAll deadlocked")
	}

	s.CancelAll()
	assert.Equal(t, 0, s.Pending())
}
