package naming

import (
	"testing"
	"time"
)

func TestNamer_StrictlyIncreasing(t *testing.T) {
	frozen := time.Date(2024, 4, 8, 18, 0, 0, 0, time.UTC)
	n := NewNamer(func() time.Time { return frozen })

	first, ts1 := n.Next("Solar Eclipse")
	second, ts2 := n.Next("Solar Eclipse")
	third, ts3 := n.Next("Retro Gaming")

	if first == second {
		t.Errorf("repeated topic produced identical names: %s", first)
	}
	if !ts2.After(ts1) || !ts3.After(ts2) {
		t.Errorf("timestamps not increasing: %v %v %v", ts1, ts2, ts3)
	}
	if first != "solar-eclipse_20240408_180000.png" || second != "solar-eclipse_20240408_180001.png" {
		t.Errorf("names = %s, %s", first, second)
	}
	if third != "retro-gaming_20240408_180002.png" {
		t.Errorf("third = %s", third)
	}
}

func TestNamer_ClockAdvancing(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := NewNamer(func() time.Time {
		clock = clock.Add(10 * time.Second)
		return clock
	})

	_, ts1 := n.Next("a")
	_, ts2 := n.Next("a")
	if ts2.Sub(ts1) != 10*time.Second {
		t.Errorf("advancing clock should be used as-is, got delta %v", ts2.Sub(ts1))
	}
}

func TestNamer_ClockGoingBackwards(t *testing.T) {
	times := []time.Time{
		time.Date(2024, 1, 1, 12, 0, 5, 0, time.UTC),
		time.Date(2024, 1, 1, 12, 0, 1, 0, time.UTC),
	}
	i := 0
	n := NewNamer(func() time.Time { t := times[i]; i++; return t })

	_, ts1 := n.Next("a")
	_, ts2 := n.Next("a")
	if !ts2.After(ts1) {
		t.Errorf("timestamp went backwards: %v then %v", ts1, ts2)
	}
}

func TestNewNamer_DefaultClock(t *testing.T) {
	name, ts := NewNamer(nil).Next("x")
	if ts.IsZero() || name == "" {
		t.Errorf("Next() = %q, %v", name, ts)
	}
}
