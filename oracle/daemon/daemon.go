package daemon

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/switchboard-xyz/solana-randomness-go/health"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/config"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/scheduler"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/submitter"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/subscribe"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/types"
	"github.com/switchboard-xyz/solana-randomness-go/retry"
)

// Daemon wires the consumer pipeline together: it submits the configured
// randomness requests, watches the service's settlement events, and verifies
// every settlement against the request that produced it.
type Daemon struct {
	rpcClient *rpc.Client

	subscribeManager *subscribe.SubscribeManager
	scheduler        *scheduler.Scheduler
	healthChecker    *health.HealthChecker
	reconnectCB      *retry.CircuitBreaker

	ctx context.Context
}

// New creates a daemon instance with initialized components.
func New(ctx context.Context) (*Daemon, error) {
	d := new(Daemon)
	d.ctx = ctx

	d.rpcClient = rpc.New(config.RPCEndpoint())
	d.subscribeManager = subscribe.NewSubscribeManager(ctx)
	d.scheduler = scheduler.New(ctx, submitter.New(d.rpcClient))
	d.reconnectCB = retry.NewCircuitBreaker(5, 5*time.Minute)

	d.healthChecker = health.NewHealthChecker(30 * time.Second)
	d.healthChecker.AddCheck(health.NewCheck("rpc", d.rpcHealthCheck))
	d.healthChecker.AddCheck(health.NewCheck("subscription", d.subscribeManager.HealthCheckFunc(5*time.Minute)))

	return d, nil
}

// Start launches the scheduler, establishes the settlement subscription, and
// queues the configured request jobs.
func (d *Daemon) Start() error {
	d.scheduler.Start()

	if err := d.connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	jobs := types.MakeJobs()
	if jobs == nil {
		return fmt.Errorf("no request jobs configured")
	}
	for _, job := range jobs {
		d.scheduler.ProcessJob(job)
	}

	go d.healthChecker.Start(d.ctx)

	return nil
}

// Stop gracefully shuts down all daemon components.
func (d *Daemon) Stop() {
	d.scheduler.Stop()
	d.subscribeManager.Close()
}

// Monitor continuously receives settlement events and reconciles them. A
// broken subscription is re-established with backoff behind a circuit breaker.
func (d *Daemon) Monitor() {
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		events, err := d.subscribeManager.Subscribe()
		if err != nil {
			log.Errorf("settlement subscription failed: %v", err)
			d.subscribeManager.Close()
			if err := d.reconnect(); err != nil {
				log.Errorf("failed to re-establish subscription: %v", err)
				return
			}
			continue
		}

		for _, event := range events {
			if err := d.scheduler.ProcessSettled(types.MakeSettleJob(event)); err != nil {
				log.Errorf("failed to process settlement: %v", err)
			}
		}
	}
}

// Serve consumes verified settlement results.
func (d *Daemon) Serve() {
	for {
		select {
		case result := <-d.scheduler.Result():
			if !result.IsSuccess {
				log.Errorf("request %s for job %q failed to settle", result.Request, result.Label)
				continue
			}

			log.Infof("job %q round %d settled: request=%s randomness=%s latency=%d slots",
				result.Label, result.Round, result.Request,
				hex.EncodeToString(result.Randomness), result.SettledSlot-result.RequestSlot)

		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Daemon) connect() error {
	if err := d.subscribeManager.Connect(); err != nil {
		return err
	}

	return d.subscribeManager.SetSubscribe(config.Commitment())
}

func (d *Daemon) reconnect() error {
	return retry.Do(d.ctx, retry.NetworkRetryConfig(), func() error {
		return d.reconnectCB.Execute(func() error {
			return d.connect()
		})
	}, retry.DefaultIsRetryable)
}

func (d *Daemon) rpcHealthCheck(ctx context.Context) error {
	out, err := d.rpcClient.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("rpc health check failed: %w", err)
	}
	if out != rpc.HealthOk {
		return fmt.Errorf("rpc node unhealthy: %s", out)
	}

	return nil
}
