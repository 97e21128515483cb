package testutil

import (
	"testing"
	"time"
)

func TestStubClock(t *testing.T) {
	c := FixedClock()
	start := c.Now()

	c.Advance(90 * time.Minute)
	if got := c.Now().Sub(start); got != 90*time.Minute {
		t.Errorf("after Advance, elapsed = %v, want 90m", got)
	}

	target := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	c.Set(target)
	if !c.Now().Equal(target) {
		t.Errorf("after Set, Now() = %v, want %v", c.Now(), target)
	}
}

func TestStubIDGenerator(t *testing.T) {
	g := NewStubIDGenerator()
	if got := g.New(); got != "run-1" {
		t.Errorf("first id = %q, want run-1", got)
	}
	if got := g.New(); got != "run-2" {
		t.Errorf("second id = %q, want run-2", got)
	}

	p := &StubIDGenerator{Prefix: "op"}
	if got := p.New(); got != "op-1" {
		t.Errorf("prefixed id = %q, want op-1", got)
	}
}
