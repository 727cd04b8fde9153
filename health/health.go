package health

import (
	"context"
	"sync"
	"time"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
)

// HealthCheck is a named probe of one dependency.
type HealthCheck interface {
	Check(ctx context.Context) error
	Name() string
}

// HealthChecker runs registered checks on an interval and keeps the most
// recent result of each.
type HealthChecker struct {
	checks   map[string]HealthCheck
	mutex    sync.RWMutex
	interval time.Duration
	status   map[string]HealthStatus
}

// HealthStatus is the last observed result of one check.
type HealthStatus struct {
	Healthy   bool
	LastCheck time.Time
	LastError error
}

func NewHealthChecker(interval time.Duration) *HealthChecker {
	return &HealthChecker{
		checks:   make(map[string]HealthCheck),
		status:   make(map[string]HealthStatus),
		interval: interval,
	}
}

// AddCheck registers a check. A newly added check is assumed healthy until
// its first run.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mutex.Lock()
	defer hc.mutex.Unlock()

	name := check.Name()
	hc.checks[name] = check
	hc.status[name] = HealthStatus{
		Healthy:   true,
		LastCheck: time.Now(),
		LastError: nil,
	}
}

// Start runs all checks on the configured interval until ctx is done.
func (hc *HealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	hc.runChecks(ctx)

	for {
		select {
		case <-ticker.C:
			hc.runChecks(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (hc *HealthChecker) runChecks(ctx context.Context) {
	hc.mutex.RLock()
	checks := make(map[string]HealthCheck, len(hc.checks))
	for name, check := range hc.checks {
		checks[name] = check
	}
	hc.mutex.RUnlock()

	for name, check := range checks {
		go func(name string, check HealthCheck) {
			err := check.Check(ctx)

			hc.mutex.Lock()
			hc.status[name] = HealthStatus{
				Healthy:   err == nil,
				LastCheck: time.Now(),
				LastError: err,
			}
			hc.mutex.Unlock()

			if err != nil {
				log.Errorf("health check %q failed: %v", name, err)
			}
		}(name, check)
	}
}

// GetStatus returns a copy of the latest results.
func (hc *HealthChecker) GetStatus() map[string]HealthStatus {
	hc.mutex.RLock()
	defer hc.mutex.RUnlock()

	result := make(map[string]HealthStatus)
	for name, status := range hc.status {
		result[name] = status
	}

	return result
}

// IsHealthy reports whether every registered check last passed.
func (hc *HealthChecker) IsHealthy() bool {
	hc.mutex.RLock()
	defer hc.mutex.RUnlock()

	for _, status := range hc.status {
		if !status.Healthy {
			return false
		}
	}

	return true
}

// Check wraps a plain function as a HealthCheck.
type Check struct {
	name      string
	checkFunc func(ctx context.Context) error
}

func NewCheck(name string, checkFunc func(ctx context.Context) error) *Check {
	return &Check{
		name:      name,
		checkFunc: checkFunc,
	}
}

func (c *Check) Check(ctx context.Context) error {
	return c.checkFunc(ctx)
}

func (c *Check) Name() string {
	return c.name
}
