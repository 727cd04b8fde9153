// Package client implements the requester side of the Solana Randomness
// Service protocol: it submits create-request transactions and waits for the
// service's settlement event.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/switchboard-xyz/solana-randomness-go/randomness"
)

// Client talks to the randomness service on behalf of a single payer.
type Client struct {
	rpcClient  *rpc.Client
	wsClient   *ws.Client
	payer      solana.PrivateKey
	commitment rpc.CommitmentType

	// Compute budget applied to the request transaction itself, distinct
	// from the TransactionOptions stored in the request for the oracle's
	// settlement transaction. Zero means no budget instruction is added.
	computeUnitLimit uint32
	computeUnitPrice uint64
}

// Option configures a Client.
type Option func(*Client)

// WithCommitment sets the commitment level used for RPC queries, blockhash
// fetches, and log subscriptions. Defaults to confirmed.
func WithCommitment(commitment rpc.CommitmentType) Option {
	return func(c *Client) { c.commitment = commitment }
}

// WithComputeBudget adds compute budget instructions to the request
// transaction so it can compete for block space on congested clusters.
func WithComputeBudget(unitLimit uint32, unitPriceMicroLamports uint64) Option {
	return func(c *Client) {
		c.computeUnitLimit = unitLimit
		c.computeUnitPrice = unitPriceMicroLamports
	}
}

// New connects to the given RPC and websocket endpoints. The payer signs and
// funds every request transaction.
func New(ctx context.Context, rpcEndpoint, wsEndpoint string, payer solana.PrivateKey, opts ...Option) (*Client, error) {
	wsClient, err := ws.Connect(ctx, wsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect websocket endpoint: %w", err)
	}

	c := &Client{
		rpcClient:  rpc.New(rpcEndpoint),
		wsClient:   wsClient,
		payer:      payer,
		commitment: rpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Close tears down the websocket connection.
func (c *Client) Close() {
	c.wsClient.Close()
}

// Payer returns the public key funding requests.
func (c *Client) Payer() solana.PublicKey {
	return c.payer.PublicKey()
}

// Request is a handle to an in-flight randomness request.
type Request struct {
	Account   solana.PublicKey
	Escrow    solana.PublicKey
	Signature solana.Signature
}

// RequestRandomness creates a fresh request account keypair and submits a
// simple_randomness_v1 instruction for numBytes bytes of randomness. The
// callback is invoked by the service once the oracle settles the request;
// opts tune the oracle's settlement transaction and may be nil.
func (c *Client) RequestRandomness(ctx context.Context, numBytes uint8, callback randomness.Callback, opts *randomness.TransactionOptions) (*Request, error) {
	if err := randomness.ValidateNumBytes(numBytes); err != nil {
		return nil, err
	}

	requestKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request keypair: %w", err)
	}

	req, err := randomness.NewSimpleRandomnessV1(requestKey.PublicKey(), c.payer.PublicKey())
	if err != nil {
		return nil, err
	}

	// The service refuses request and escrow accounts that already hold
	// data or lamports. A fresh keypair collides only if someone funded it
	// out of band, so check both before spending the fee.
	if err := c.ensureUnused(ctx, requestKey.PublicKey()); err != nil {
		return nil, err
	}
	if err := c.ensureUnused(ctx, req.Escrow); err != nil {
		return nil, err
	}

	requestIx, err := req.Build(numBytes, callback, opts)
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 3)
	if c.computeUnitLimit > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(c.computeUnitLimit).Build())
	}
	if c.computeUnitPrice > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(c.computeUnitPrice).Build())
	}
	instructions = append(instructions, requestIx)

	recent, err := c.rpcClient.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(c.payer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(c.payer.PublicKey()):
			return &c.payer
		case key.Equals(requestKey.PublicKey()):
			return &requestKey
		default:
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return &Request{
		Account:   requestKey.PublicKey(),
		Escrow:    req.Escrow,
		Signature: sig,
	}, nil
}

// AwaitSettled blocks until the service emits a settlement event for the
// given request account, the subscription fails, or ctx is done. Callers
// bound the wait with a context deadline.
func (c *Client) AwaitSettled(ctx context.Context, request solana.PublicKey) (*randomness.SimpleRandomnessV1SettledEvent, error) {
	sub, err := c.wsClient.LogsSubscribeMentions(randomness.ProgramID, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to service logs: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		result, err := sub.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("log subscription closed: %w", err)
		}

		if result.Value.Err != nil {
			continue
		}

		for _, event := range randomness.ParseSettledEvents(result.Value.Logs) {
			if event.Request.Equals(request) {
				return event, nil
			}
		}
	}
}

// RequestAndAwait submits a request and waits for its settlement in one call.
func (c *Client) RequestAndAwait(ctx context.Context, numBytes uint8, callback randomness.Callback, opts *randomness.TransactionOptions) (*Request, *randomness.SimpleRandomnessV1SettledEvent, error) {
	req, err := c.RequestRandomness(ctx, numBytes, callback, opts)
	if err != nil {
		return nil, nil, err
	}

	event, err := c.AwaitSettled(ctx, req.Account)
	if err != nil {
		return req, nil, err
	}

	return req, event, nil
}

// FetchRequestAccount reads and decodes a pending request account. Returns
// rpc.ErrNotFound once the service has closed the account after settlement.
func (c *Client) FetchRequestAccount(ctx context.Context, request solana.PublicKey) (*randomness.SimpleRandomnessV1Account, error) {
	info, err := c.rpcClient.GetAccountInfoWithOpts(ctx, request, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request account: %w", err)
	}

	if !info.Value.Owner.Equals(randomness.ProgramID) {
		return nil, fmt.Errorf("request account %s not owned by the randomness service", request)
	}

	return randomness.DecodeRequestAccount(info.Value.Data.GetBinary())
}

// FetchState reads and decodes the service's global state account.
func (c *Client) FetchState(ctx context.Context) (*randomness.State, error) {
	info, err := c.rpcClient.GetAccountInfoWithOpts(ctx, randomness.StateAccount, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch state account: %w", err)
	}

	return randomness.DecodeState(info.Value.Data.GetBinary())
}

// ConfirmTransaction polls until the signature reaches the client's
// commitment level or ctx is done.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		res, err := c.rpcClient.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			continue
		}

		if len(res.Value) == 0 || res.Value[0] == nil {
			continue
		}

		status := res.Value[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed: %v", sig, status.Err)
		}

		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusFinalized:
			return nil
		case rpc.ConfirmationStatusConfirmed:
			if c.commitment != rpc.CommitmentFinalized {
				return nil
			}
		case rpc.ConfirmationStatusProcessed:
			if c.commitment == rpc.CommitmentProcessed {
				return nil
			}
		}
	}
}

// HealthCheckFunc exposes an RPC liveness probe for the health checker.
func (c *Client) HealthCheckFunc() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		out, err := c.rpcClient.GetHealth(ctx)
		if err != nil {
			return fmt.Errorf("rpc health check failed: %w", err)
		}
		if out != rpc.HealthOk {
			return fmt.Errorf("rpc node unhealthy: %s", out)
		}

		return nil
	}
}

func (c *Client) ensureUnused(ctx context.Context, account solana.PublicKey) error {
	info, err := c.rpcClient.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check account %s: %w", account, err)
	}

	if info.Value == nil {
		return nil
	}

	if info.Value.Lamports > 0 || len(info.Value.Data.GetBinary()) > 0 {
		return fmt.Errorf("account %s already in use", account)
	}

	return nil
}
