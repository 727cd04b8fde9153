package health

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
)

func TestMain(m *testing.M) {
	log.InitLogger()
	m.Run()
}

func TestCheckWrapper(t *testing.T) {
	called := false
	check := NewCheck("rpc", func(ctx context.Context) error {
		called = true
		return nil
	})

	require.Equal(t, "rpc", check.Name())
	require.NoError(t, check.Check(context.Background()))
	require.True(t, called)
}

func TestHealthChecker_NewCheckAssumedHealthy(t *testing.T) {
	hc := NewHealthChecker(time.Hour)
	hc.AddCheck(NewCheck("rpc", func(ctx context.Context) error { return nil }))

	require.True(t, hc.IsHealthy())

	status := hc.GetStatus()
	require.Len(t, status, 1)
	require.True(t, status["rpc"].Healthy)
	require.NoError(t, status["rpc"].LastError)
}

func TestHealthChecker_FailingCheck(t *testing.T) {
	hc := NewHealthChecker(time.Hour)
	hc.AddCheck(NewCheck("good", func(ctx context.Context) error { return nil }))
	hc.AddCheck(NewCheck("bad", func(ctx context.Context) error { return fmt.Errorf("unreachable") }))

	hc.runChecks(context.Background())

	require.Eventually(t, func() bool {
		status := hc.GetStatus()
		return !status["bad"].Healthy && status["good"].Healthy
	}, time.Second, 10*time.Millisecond)

	require.False(t, hc.IsHealthy())

	status := hc.GetStatus()
	require.ErrorContains(t, status["bad"].LastError, "unreachable")
}

func TestHealthChecker_RecoversAfterSuccess(t *testing.T) {
	healthy := false
	hc := NewHealthChecker(time.Hour)
	hc.AddCheck(NewCheck("flaky", func(ctx context.Context) error {
		if !healthy {
			return fmt.Errorf("not yet")
		}
		return nil
	}))

	hc.runChecks(context.Background())
	require.Eventually(t, func() bool { return !hc.IsHealthy() }, time.Second, 10*time.Millisecond)

	healthy = true
	hc.runChecks(context.Background())
	require.Eventually(t, func() bool { return hc.IsHealthy() }, time.Second, 10*time.Millisecond)
}

func TestHealthChecker_StartStopsOnContextDone(t *testing.T) {
	hc := NewHealthChecker(5 * time.Millisecond)
	runs := make(chan struct{}, 16)
	hc.AddCheck(NewCheck("ticker", func(ctx context.Context) error {
		select {
		case runs <- struct{}{}:
		default:
		}
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		hc.Start(ctx)
		close(done)
	}()

	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("check never ran")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
