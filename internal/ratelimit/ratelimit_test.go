// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ratelimit

import (
	"testing"
	"time"
)

func TestTryAcquire_Sequence(t *testing.T) {
	base := time.Now()
	l := New(1000 * time.Millisecond)

	// First request at t=0 is granted.
	granted, wait := l.TryAcquire(base)
	if !granted || wait != 0 {
		t.Fatalf("TryAcquire(t=0) = (%v, %v), want granted", granted, wait)
	}

	// At t=500ms the interval has not elapsed: denied with ~500ms wait.
	granted, wait = l.TryAcquire(base.Add(500 * time.Millisecond))
	if granted {
		t.Fatal("TryAcquire(t=500ms) granted, want denied")
	}
	if wait < 450*time.Millisecond || wait > 550*time.Millisecond {
		t.Errorf("wait = %v, want ~500ms", wait)
	}

	// At t=1000ms the interval has elapsed: granted.
	granted, _ = l.TryAcquire(base.Add(1000 * time.Millisecond))
	if !granted {
		t.Fatal("TryAcquire(t=1s) denied, want granted")
	}
}

func TestTryAcquire_DenialDoesNotConsume(t *testing.T) {
	base := time.Now()
	l := New(time.Second)

	if granted, _ := l.TryAcquire(base); !granted {
		t.Fatal("first acquire denied")
	}

	// Repeated denials must not push the next allowed time further out.
	for i := 1; i <= 5; i++ {
		at := base.Add(time.Duration(i*100) * time.Millisecond)
		if granted, _ := l.TryAcquire(at); granted {
			t.Fatalf("TryAcquire at +%dms granted inside interval", i*100)
		}
	}

	if granted, wait := l.TryAcquire(base.Add(time.Second)); !granted {
		t.Fatalf("TryAcquire at +1s denied (wait %v) after denials, want granted", wait)
	}
}

func TestTryAcquire_GrantRecordsTime(t *testing.T) {
	base := time.Now()
	l := New(time.Second)

	l.TryAcquire(base)
	l.TryAcquire(base.Add(time.Second)) // second grant at t=1s

	// t=1.5s is inside the interval from the second grant.
	if granted, wait := l.TryAcquire(base.Add(1500 * time.Millisecond)); granted {
		t.Fatal("TryAcquire(t=1.5s) granted, want denied")
	} else if wait < 400*time.Millisecond || wait > 600*time.Millisecond {
		t.Errorf("wait = %v, want ~500ms", wait)
	}
}

func TestNew_NonPositiveIntervalUsesDefault(t *testing.T) {
	l := New(0)
	if l.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", l.Interval(), DefaultInterval)
	}
}
