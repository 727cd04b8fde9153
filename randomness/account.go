package randomness

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Anchor account discriminators, sha256("account:<Name>")[..8].
var (
	RequestAccountDiscriminator = [8]byte{45, 236, 206, 109, 194, 21, 241, 154}
	StateDiscriminator          = [8]byte{216, 146, 107, 94, 104, 75, 182, 177}
)

// SimpleRandomnessV1Account mirrors a service-owned request account. It is
// created by the requester's transaction, written by the oracle on settlement,
// and closed by the service after the callback is invoked. Consumers only
// ever read it.
type SimpleRandomnessV1Account struct {
	IsCompleted              uint8
	NumBytes                 uint8
	User                     solana.PublicKey
	Escrow                   solana.PublicKey
	RequestSlot              uint64
	Callback                 Callback
	ComputeUnits             uint32
	PriorityFeeMicroLamports uint64
	ErrorMessage             string
}

// Completed reports whether the oracle has settled the request.
func (a *SimpleRandomnessV1Account) Completed() bool {
	return a.IsCompleted != 0
}

// DecodeRequestAccount decodes a request account's raw data, checking the
// discriminator first.
func DecodeRequestAccount(data []byte) (*SimpleRandomnessV1Account, error) {
	payload, err := stripDiscriminator(data, RequestAccountDiscriminator, "request account")
	if err != nil {
		return nil, err
	}

	acc := new(SimpleRandomnessV1Account)
	if err := decodeBorsh(payload, acc); err != nil {
		return nil, fmt.Errorf("failed to decode request account: %w", err)
	}

	return acc, nil
}

// State is the service's singleton configuration account: the escrow
// authority bump, the fee schedule, and the oracle wiring. Initialized once
// by the service deployer and persistent for the program lifetime.
type State struct {
	Bump                uint8
	Authority           solana.PublicKey
	Mint                solana.PublicKey
	SwitchboardFunction solana.PublicKey
	Wallet              solana.PublicKey
	CostPerByte         uint64
	LastUpdated         int64
}

// RequestFee returns the escrow amount in lamports the service charges for a
// request of the given size.
func (s *State) RequestFee(numBytes uint8) uint64 {
	return s.CostPerByte * uint64(numBytes)
}

// DecodeState decodes the service state account's raw data, checking the
// discriminator first.
func DecodeState(data []byte) (*State, error) {
	payload, err := stripDiscriminator(data, StateDiscriminator, "state account")
	if err != nil {
		return nil, err
	}

	state := new(State)
	if err := decodeBorsh(payload, state); err != nil {
		return nil, fmt.Errorf("failed to decode state account: %w", err)
	}

	return state, nil
}

func stripDiscriminator(data []byte, discriminator [8]byte, kind string) ([]byte, error) {
	if len(data) < len(discriminator) {
		return nil, fmt.Errorf("%s data too short: %d bytes", kind, len(data))
	}

	if !bytes.Equal(data[:8], discriminator[:]) {
		return nil, fmt.Errorf("%s discriminator mismatch", kind)
	}

	return data[8:], nil
}
