package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/types"
	"github.com/switchboard-xyz/solana-randomness-go/retry"
)

// confirmTimeout bounds a single broadcast-and-confirm attempt. A blockhash
// is valid for roughly 60 seconds; past that the attempt is rebuilt.
const confirmTimeout = 90 * time.Second

// executeRequest submits one randomness request and waits for the
// transaction to be confirmed. Each retry attempt rebuilds the transaction
// with a fresh request keypair and blockhash. Declared as a variable so
// tests can stub the network round trip.
var executeRequest = func(s *Scheduler, job *types.Job) (solana.PublicKey, error) {
	var request solana.PublicKey

	err := retry.Do(s.ctx, retry.TransactionRetryConfig(), func() error {
		attemptCtx, cancel := context.WithTimeout(s.ctx, confirmTimeout)
		defer cancel()

		tx, requestKey, err := s.submitter.BuildTransaction(attemptCtx, job)
		if err != nil {
			return fmt.Errorf("failed to build transaction: %w", err)
		}

		sig, err := s.submitter.BroadcastTransaction(attemptCtx, tx)
		if err != nil {
			return fmt.Errorf("failed to broadcast transaction: %w", err)
		}

		if err := s.submitter.ConfirmTransaction(attemptCtx, sig); err != nil {
			return fmt.Errorf("failed to confirm transaction %s: %w", sig, err)
		}

		request = requestKey

		return nil
	}, retry.TransactionIsRetryable)
	if err != nil {
		return solana.PublicKey{}, err
	}

	return request, nil
}
