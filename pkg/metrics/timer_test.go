package metrics

import (
	"testing"
	"time"
)

// TestNewTimer tests timer creation
func TestNewTimer(t *testing.T) {
	timer := NewTimer()

	if timer == nil {
		t.Fatal("NewTimer() returned nil")
	}

	if timer.start.IsZero() {
		t.Error("NewTimer() start time is zero")
	}
}

// TestTimerDuration tests duration measurement
func TestTimerDuration(t *testing.T) {
	timer := NewTimer()

	sleepDuration := 50 * time.Millisecond
	time.Sleep(sleepDuration)

	if duration := timer.Duration(); duration < sleepDuration {
		t.Errorf("Timer.Duration() = %v, want >= %v", duration, sleepDuration)
	}
}

type observerFunc func(float64)

func (f observerFunc) Observe(v float64) { f(v) }

// TestTimerObserveDuration tests that the elapsed seconds reach the observer
func TestTimerObserveDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)

	var got []float64
	timer.ObserveDuration(observerFunc(func(v float64) { got = append(got, v) }))

	if len(got) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(got))
	}
	if got[0] < 0.01 {
		t.Errorf("observed %v seconds, want >= 0.01", got[0])
	}
}

// TestMultipleTimers tests that multiple timers work independently
func TestMultipleTimers(t *testing.T) {
	timer1 := NewTimer()
	time.Sleep(20 * time.Millisecond)

	timer2 := NewTimer()
	time.Sleep(20 * time.Millisecond)

	if d1, d2 := timer1.Duration(), timer2.Duration(); d1 <= d2 {
		t.Errorf("timer1 should be running longer: timer1=%v, timer2=%v", d1, d2)
	}
}
