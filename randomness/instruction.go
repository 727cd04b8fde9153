package randomness

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SimpleRandomnessV1Discriminator is the Anchor discriminator of the
// service's create-request instruction: sha256("global:simple_randomness_v1")[..8].
var SimpleRandomnessV1Discriminator = [8]byte{179, 249, 152, 75, 164, 218, 230, 36}

// MaxRandomBytes is the largest byte count a single request may ask for.
const MaxRandomBytes uint8 = 32

// SimpleRandomnessV1 collects the accounts of a randomness request. The
// request and escrow accounts must not exist yet (zero data, zero lamports);
// the service creates both and refunds the request account's rent to the
// payer after the callback runs.
type SimpleRandomnessV1 struct {
	Request solana.PublicKey
	Escrow  solana.PublicKey
	State   solana.PublicKey
	Mint    solana.PublicKey
	Payer   solana.PublicKey
}

// NewSimpleRandomnessV1 fills in the derived and fixed accounts for a request
// keyed by the given fresh request account and payer.
func NewSimpleRandomnessV1(request, payer solana.PublicKey) (SimpleRandomnessV1, error) {
	escrow, err := FindEscrowAddress(request)
	if err != nil {
		return SimpleRandomnessV1{}, err
	}

	return SimpleRandomnessV1{
		Request: request,
		Escrow:  escrow,
		State:   StateAccount,
		Mint:    NativeMint,
		Payer:   payer,
	}, nil
}

// Build assembles the create-request instruction addressed to the service
// program. Instruction data is the discriminator, the requested byte count,
// the Borsh-encoded callback, and the Borsh-encoded optional transaction
// options, in that order. Account ownership and emptiness are validated by
// the service program, not here.
func (r SimpleRandomnessV1) Build(numBytes uint8, callback Callback, opts *TransactionOptions) (solana.Instruction, error) {
	callbackData, err := callback.ToBytes()
	if err != nil {
		return nil, err
	}

	optsData, err := opts.ToOptBytes()
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(SimpleRandomnessV1Discriminator)+1+len(callbackData)+len(optsData))
	data = append(data, SimpleRandomnessV1Discriminator[:]...)
	data = append(data, numBytes)
	data = append(data, callbackData...)
	data = append(data, optsData...)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(r.Request, true, true),
		solana.NewAccountMeta(r.Escrow, true, false),
		solana.NewAccountMeta(r.State, false, false),
		solana.NewAccountMeta(r.Mint, false, false),
		solana.NewAccountMeta(r.Payer, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
	}

	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// ValidateNumBytes rejects byte counts the service would refuse on-chain.
func ValidateNumBytes(numBytes uint8) error {
	if numBytes == 0 {
		return fmt.Errorf("requested byte count must be at least 1")
	}
	if numBytes > MaxRandomBytes {
		return fmt.Errorf("requested byte count %d exceeds maximum %d", numBytes, MaxRandomBytes)
	}

	return nil
}
