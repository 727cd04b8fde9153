package submitter

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/config"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/types"
	"github.com/switchboard-xyz/solana-randomness-go/randomness"
)

// Submitter handles the creation, signing, and broadcasting of randomness
// request transactions. Each request signs with the payer and a fresh
// request account keypair; the service creates the account and later closes
// it, refunding rent to the payer.
type Submitter struct {
	rpcClient  *rpc.Client
	payer      solana.PrivateKey
	commitment rpc.CommitmentType
}

// New creates a Submitter funded by the configured payer.
func New(rpcClient *rpc.Client) *Submitter {
	return &Submitter{
		rpcClient:  rpcClient,
		payer:      config.Payer(),
		commitment: config.Commitment(),
	}
}

// BuildTransaction assembles a signed create-request transaction for the job.
// It returns the transaction and the request account public key the caller
// must track for settlement.
func (s *Submitter) BuildTransaction(ctx context.Context, job *types.Job) (*solana.Transaction, solana.PublicKey, error) {
	if err := randomness.ValidateNumBytes(job.NumBytes); err != nil {
		return nil, solana.PublicKey{}, err
	}

	requestKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to generate request keypair: %w", err)
	}

	request, err := randomness.NewSimpleRandomnessV1(requestKey.PublicKey(), s.payer.PublicKey())
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	callback := finalizeCallback(job.Callback, requestKey.PublicKey())
	opts := randomness.NewTransactionOptions(config.ComputeUnits(), config.ComputeUnitPrice())

	requestIx, err := request.Build(job.NumBytes, callback, opts)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to build request instruction: %w", err)
	}

	instructions := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(config.ComputeUnits()).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(config.ComputeUnitPrice()).Build(),
		requestIx,
	}

	recent, err := s.rpcClient.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to fetch recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(s.payer.PublicKey()))
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(s.payer.PublicKey()):
			return &s.payer
		case key.Equals(requestKey.PublicKey()):
			return &requestKey
		default:
			return nil
		}
	}); err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return tx, requestKey.PublicKey(), nil
}

// BroadcastTransaction sends a signed transaction to the cluster.
func (s *Submitter) BroadcastTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := s.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	log.Debugf("transaction broadcasted successfully: %s", sig)

	return sig, nil
}

// ConfirmTransaction polls signature statuses until the transaction reaches
// the configured commitment, fails on-chain, or ctx is done. A transaction
// whose blockhash expired before landing surfaces as ctx timeout; the retry
// layer rebuilds it with a fresh blockhash.
func (s *Submitter) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		res, err := s.rpcClient.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			log.Debugf("failed to fetch signature status: %v", err)
			continue
		}

		if len(res.Value) == 0 || res.Value[0] == nil {
			continue
		}

		status := res.Value[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed on-chain: %v", sig, status.Err)
		}

		if confirmed(status.ConfirmationStatus, s.commitment) {
			return nil
		}
	}
}

func confirmed(status rpc.ConfirmationStatusType, commitment rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return commitment != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return commitment == rpc.CommitmentProcessed
	default:
		return false
	}
}

// finalizeCallback appends the request account to the configured callback
// account list so the consumer program can locate its request on settlement.
func finalizeCallback(base randomness.Callback, request solana.PublicKey) randomness.Callback {
	if base.ProgramID.IsZero() {
		return base
	}

	accounts := make([]randomness.AccountMeta, 0, len(base.Accounts)+1)
	accounts = append(accounts, base.Accounts...)
	accounts = append(accounts, randomness.NewAccountMeta(request, false, false))

	return randomness.NewCallback(base.ProgramID, accounts, base.IxData)
}
