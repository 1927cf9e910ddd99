package cache

import (
	"testing"
	"time"
)

var msk = time.FixedZone("MSK", 3*60*60)

func TestSecondsUntilCutoverBeforeCutover(t *testing.T) {
	now := time.Date(2025, 9, 12, 10, 0, 0, 0, msk)

	got := SecondsUntilCutover(now, 14, 11, msk)

	want := 4*3600 + 11*60
	if got != want {
		t.Fatalf("SecondsUntilCutover() = %d, want %d", got, want)
	}
}

func TestSecondsUntilCutoverAfterCutoverRollsToTomorrow(t *testing.T) {
	now := time.Date(2025, 9, 12, 15, 0, 0, 0, msk)

	got := SecondsUntilCutover(now, 14, 11, msk)

	want := 23*3600 + 11*60
	if got != want {
		t.Fatalf("SecondsUntilCutover() = %d, want %d", got, want)
	}
}

func TestSecondsUntilCutoverAtExactCutover(t *testing.T) {
	now := time.Date(2025, 9, 12, 14, 11, 0, 0, msk)

	got := SecondsUntilCutover(now, 14, 11, msk)

	if got != 86400 {
		t.Fatalf("SecondsUntilCutover() at cutover instant = %d, want 86400", got)
	}
}

func TestSecondsUntilCutoverStraddlesMidnight(t *testing.T) {
	now := time.Date(2025, 9, 12, 23, 30, 0, 0, msk)

	got := SecondsUntilCutover(now, 0, 15, msk)

	if got != 45*60 {
		t.Fatalf("SecondsUntilCutover() = %d, want %d", got, 45*60)
	}
}

func TestSecondsUntilCutoverRange(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		now := time.Date(2025, 9, 12, hour, 37, 13, 0, msk)
		got := SecondsUntilCutover(now, 14, 11, msk)
		if got < 0 || got >= 86400 {
			t.Fatalf("SecondsUntilCutover() at hour %d = %d, want [0, 86400)", hour, got)
		}
	}
}

func TestSecondsUntilCutoverConvertsCallerZone(t *testing.T) {
	// 12:00 UTC 即 15:00 MSK，已过当天 14:11
	now := time.Date(2025, 9, 12, 12, 0, 0, 0, time.UTC)

	got := SecondsUntilCutover(now, 14, 11, msk)

	want := 23*3600 + 11*60
	if got != want {
		t.Fatalf("SecondsUntilCutover() = %d, want %d", got, want)
	}
}

func TestPolicyFixedTTL(t *testing.T) {
	p, err := NewPolicy("UTC", 14, 11, 0)
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	if p.Fixed() != DefaultFixedTTL {
		t.Fatalf("Fixed() = %v, want %v", p.Fixed(), DefaultFixedTTL)
	}
}

func TestPolicyUntilCutover(t *testing.T) {
	p, err := NewPolicy("UTC", 14, 11, time.Hour)
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}
	p.now = func() time.Time {
		return time.Date(2025, 9, 12, 14, 0, 0, 0, time.UTC)
	}

	if got := p.UntilCutover(); got != 11*time.Minute {
		t.Fatalf("UntilCutover() = %v, want %v", got, 11*time.Minute)
	}
}

func TestPolicyRejectsUnknownTimezone(t *testing.T) {
	if _, err := NewPolicy("Not/AZone", 14, 11, time.Hour); err == nil {
		t.Fatal("NewPolicy() with invalid timezone, want error")
	}
}
