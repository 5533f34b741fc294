package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Policy{MaxAttempts: 3}, func() (int, error) {
		calls++
		return 7, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != 7 || calls != 1 {
		t.Fatalf("got v=%d calls=%d, want v=7 calls=1", v, calls)
	}
}

func TestDoExactAttemptBound(t *testing.T) {
	calls := 0
	exhausted := 0
	boom := errors.New("boom")
	start := time.Now()
	_, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		Delay:       10 * time.Millisecond,
		OnExhausted: func() { exhausted++ },
	}, func() (string, error) {
		calls++
		return "", boom
	})
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want exactly 3", calls)
	}
	if exhausted != 1 {
		t.Fatalf("OnExhausted ran %d times, want 1", exhausted)
	}
	// Two inter-attempt delays.
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("elapsed %v, want >= 20ms of fixed delays", elapsed)
	}
}

func TestDoRecoversOnLaterAttempt(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Policy{MaxAttempts: 3, Delay: time.Millisecond}, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != 42 || calls != 3 {
		t.Fatalf("got v=%d calls=%d, want v=42 calls=3", v, calls)
	}
}

func TestDoContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, Policy{MaxAttempts: 100, Delay: time.Hour}, func() (int, error) {
			calls++
			return 0, errors.New("always")
		})
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 before cancel", calls)
	}
}

func TestVoidDefaultsToSingleAttempt(t *testing.T) {
	calls := 0
	err := Void(context.Background(), Policy{}, func() error {
		calls++
		return errors.New("nope")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
