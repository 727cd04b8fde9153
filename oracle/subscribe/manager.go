package subscribe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/config"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
	"github.com/switchboard-xyz/solana-randomness-go/randomness"
)

// SubscribeManager maintains a websocket subscription to the randomness
// service's transaction logs and turns them into settlement events.
type SubscribeManager struct {
	wsClient      *ws.Client
	subscription  *ws.LogSubscription
	lock          sync.RWMutex
	lastEventTime time.Time
	ctx           context.Context
}

// NewSubscribeManager creates a subscription manager for service settlement events.
func NewSubscribeManager(ctx context.Context) *SubscribeManager {
	return &SubscribeManager{
		lock:          sync.RWMutex{},
		lastEventTime: time.Now(),
		ctx:           ctx,
	}
}

// Connect dials the cluster websocket endpoint.
func (sm *SubscribeManager) Connect() error {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	wsClient, err := ws.Connect(sm.ctx, config.WSEndpoint())
	if err != nil {
		return fmt.Errorf("failed to connect websocket endpoint: %w", err)
	}
	sm.wsClient = wsClient

	return nil
}

// SetSubscribe subscribes to every transaction that mentions the randomness
// service program. Failed transactions are filtered out on receive.
func (sm *SubscribeManager) SetSubscribe(commitment rpc.CommitmentType) error {
	log.Debugf("start setting subscribe")
	sm.lock.Lock()
	defer sm.lock.Unlock()

	if sm.wsClient == nil {
		return fmt.Errorf("websocket not connected")
	}

	subscription, err := sm.wsClient.LogsSubscribeMentions(randomness.ProgramID, commitment)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s logs: %w", randomness.ProgramID, err)
	}
	sm.subscription = subscription
	sm.lastEventTime = time.Now()

	log.Debugf("end setting subscribe")

	return nil
}

// Subscribe blocks for the next batch of settlement events. A nil return with
// no events means the notification carried nothing relevant; an error means
// the subscription is broken and must be re-established.
func (sm *SubscribeManager) Subscribe() ([]*randomness.SimpleRandomnessV1SettledEvent, error) {
	sm.lock.RLock()
	subscription := sm.subscription
	sm.lock.RUnlock()

	if subscription == nil {
		return nil, fmt.Errorf("not subscribed")
	}

	result, err := subscription.Recv(sm.ctx)
	if err != nil {
		return nil, fmt.Errorf("log subscription closed: %w", err)
	}

	sm.touch()

	if result.Value.Err != nil {
		log.Debugf("skipping failed transaction %s", result.Value.Signature)
		return nil, nil
	}

	return randomness.ParseSettledEvents(result.Value.Logs), nil
}

// Close drops the subscription and connection.
func (sm *SubscribeManager) Close() {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	if sm.subscription != nil {
		sm.subscription.Unsubscribe()
		sm.subscription = nil
	}

	if sm.wsClient != nil {
		sm.wsClient.Close()
		sm.wsClient = nil
	}
}

// LastEventTime reports when the subscription last delivered a notification,
// for staleness health checks.
func (sm *SubscribeManager) LastEventTime() time.Time {
	sm.lock.RLock()
	defer sm.lock.RUnlock()

	return sm.lastEventTime
}

// HealthCheckFunc flags the subscription as unhealthy when no notification
// has arrived within the given window.
func (sm *SubscribeManager) HealthCheckFunc(staleAfter time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sm.lock.RLock()
		subscribed := sm.subscription != nil
		last := sm.lastEventTime
		sm.lock.RUnlock()

		if !subscribed {
			return fmt.Errorf("log subscription not established")
		}

		if since := time.Since(last); since > staleAfter {
			return fmt.Errorf("log subscription stale: last notification %v ago", since)
		}

		return nil
	}
}

func (sm *SubscribeManager) touch() {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	sm.lastEventTime = time.Now()
}
