package id

import (
	"testing"
	"time"
)

func withFrozenClock(t *testing.T, ms int64) func(int64) {
	t.Helper()
	NowMs = func() int64 { return ms }
	t.Cleanup(func() { NowMs = func() int64 { return time.Now().UnixMilli() } })
	return func(v int64) { NowMs = func() int64 { return v } }
}

func TestNextIsMonotonicWithinMillisecond(t *testing.T) {
	withFrozenClock(t, 1000)
	g := NewGenerator()
	a := g.Next()
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("want a < b, got %s >= %s", a, b)
	}
}

func TestClockRegressionStillAdvances(t *testing.T) {
	set := withFrozenClock(t, 1000)
	g := NewGenerator()
	a := g.Next()
	set(900)
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("id must advance despite clock regression")
	}
}

func TestSequenceOverflowWaitsForNextMs(t *testing.T) {
	set := withFrozenClock(t, 2000)
	g := NewGenerator()
	g.lastMs = 2000
	g.seq = ^uint64(0)

	done := make(chan ID, 1)
	go func() { done <- g.Next() }()
	time.AfterFunc(10*time.Millisecond, func() { set(2001) })

	select {
	case got := <-done:
		if got[15] != 0 {
			t.Fatalf("sequence should reset after rollover, got %s", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("generator stuck waiting for next millisecond")
	}
}

func TestStringForms(t *testing.T) {
	withFrozenClock(t, 0x0102)
	g := NewGenerator()
	got := g.Next()
	if len(got.String()) != 32 {
		t.Fatalf("hex form should be 32 chars, got %q", got.String())
	}
	if len(got.Short()) != 16 {
		t.Fatalf("short form should be 16 chars, got %q", got.Short())
	}
}
