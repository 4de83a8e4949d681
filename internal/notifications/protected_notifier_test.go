package notifications_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/bookstore/internal/notifications"
)

type scriptedNotifier struct {
	err   error
	calls int
}

func (s *scriptedNotifier) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	s.calls++
	return s.err
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("smtp down")}

	n := notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		FailureThreshold: 3,
		Cooldown:         time.Minute,
	})

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := n.SendPasswordReset(ctx, "a@x.com", "url"); err == nil {
			t.Fatalf("call %d should fail", i)
		}
	}

	err := n.SendPasswordReset(ctx, "a@x.com", "url")

	if !errors.Is(err, notifications.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}

	if inner.calls != 3 {
		t.Fatalf("inner called %d times, want 3", inner.calls)
	}
}

func TestCircuitRecoversThroughHalfOpen(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("smtp down")}

	n := notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	ctx := context.Background()

	if err := n.SendPasswordReset(ctx, "a@x.com", "url"); err == nil {
		t.Fatalf("first call should fail and open the circuit")
	}

	if err := n.SendPasswordReset(ctx, "a@x.com", "url"); !errors.Is(err, notifications.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}

	time.Sleep(20 * time.Millisecond)

	// provider is back, the half-open trial call succeeds and closes the circuit
	inner.err = nil

	if err := n.SendPasswordReset(ctx, "a@x.com", "url"); err != nil {
		t.Fatalf("half-open trial: %v", err)
	}

	if err := n.SendPasswordReset(ctx, "a@x.com", "url"); err != nil {
		t.Fatalf("circuit should be closed again: %v", err)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("smtp down")}

	n := notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	ctx := context.Background()

	_ = n.SendPasswordReset(ctx, "a@x.com", "url")

	time.Sleep(20 * time.Millisecond)

	// still down, the trial call fails and the circuit snaps open again
	if err := n.SendPasswordReset(ctx, "a@x.com", "url"); errors.Is(err, notifications.ErrCircuitOpen) {
		t.Fatalf("trial call should have reached the provider")
	}

	if err := n.SendPasswordReset(ctx, "a@x.com", "url"); !errors.Is(err, notifications.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestSendTimeout(t *testing.T) {
	slow := notifierFunc(func(ctx context.Context, email, resetURL string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	n := notifications.NewProtectedNotifier(slow, notifications.ProtectedNotifierConfig{
		Timeout: 10 * time.Millisecond,
	})

	err := n.SendPasswordReset(context.Background(), "a@x.com", "url")

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

type notifierFunc func(ctx context.Context, email, resetURL string) error

func (f notifierFunc) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	return f(ctx, email, resetURL)
}
