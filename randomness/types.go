package randomness

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// AccountMeta is the Borsh wire form of an instruction account reference
// carried inside a callback descriptor.
type AccountMeta struct {
	PublicKey  solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// NewAccountMeta creates an account reference for a callback descriptor.
func NewAccountMeta(pub solana.PublicKey, isSigner, isWritable bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: isWritable,
	}
}

// ToSolana converts the Borsh wire form back into a solana-go account meta.
func (m AccountMeta) ToSolana() *solana.AccountMeta {
	return solana.NewAccountMeta(m.PublicKey, m.IsWritable, m.IsSigner)
}

// Callback specifies the program, accounts, and instruction data prefix the
// service invokes once a request settles. The oracle appends the randomness
// bytes to IxData before invoking, so IxData normally holds only the target
// instruction's 8-byte discriminator. A callback is immutable once the
// request is created.
type Callback struct {
	ProgramID solana.PublicKey
	Accounts  []AccountMeta
	IxData    []byte
}

// NewCallback builds a callback descriptor. The account and data slices are
// copied so later mutation by the caller cannot alter the descriptor.
func NewCallback(programID solana.PublicKey, accounts []AccountMeta, ixData []byte) Callback {
	cb := Callback{
		ProgramID: programID,
		Accounts:  make([]AccountMeta, len(accounts)),
		IxData:    make([]byte, len(ixData)),
	}
	copy(cb.Accounts, accounts)
	copy(cb.IxData, ixData)

	return cb
}

// ToBytes encodes the callback in Borsh form as stored in the request account.
func (c Callback) ToBytes() ([]byte, error) {
	data, err := encodeBorsh(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode callback: %w", err)
	}

	return data, nil
}

// TransactionOptions tune the compute budget of the oracle's settlement
// transaction. Nil fields fall back to the service defaults; out-of-range
// values are clamped the same way the service clamps them.
type TransactionOptions struct {
	ComputeUnits     *uint32 `bin:"optional"`
	ComputeUnitPrice *uint64 `bin:"optional"`
}

const (
	DefaultComputeUnits uint32 = 1_000_000
	MinimumComputeUnits uint32 = 200_000
	MaximumComputeUnits uint32 = 1_400_000

	DefaultComputeUnitPrice uint64 = 1
	MinimumComputeUnitPrice uint64 = 1
	MaximumComputeUnitPrice uint64 = 1_000_000_000
)

// NewTransactionOptions builds options with explicit values for both fields.
func NewTransactionOptions(computeUnits uint32, computeUnitPrice uint64) *TransactionOptions {
	return &TransactionOptions{
		ComputeUnits:     &computeUnits,
		ComputeUnitPrice: &computeUnitPrice,
	}
}

// GetComputeUnits returns the compute unit limit clamped to the service bounds.
func (o *TransactionOptions) GetComputeUnits() uint32 {
	units := DefaultComputeUnits
	if o != nil && o.ComputeUnits != nil {
		units = *o.ComputeUnits
	}

	return min(MaximumComputeUnits, max(MinimumComputeUnits, units))
}

// GetComputeUnitPrice returns the micro-lamport unit price clamped to the
// service bounds.
func (o *TransactionOptions) GetComputeUnitPrice() uint64 {
	price := DefaultComputeUnitPrice
	if o != nil && o.ComputeUnitPrice != nil {
		price = *o.ComputeUnitPrice
	}

	return min(MaximumComputeUnitPrice, max(MinimumComputeUnitPrice, price))
}

// PriorityFeeLamports computes the settlement transaction's priority fee in
// lamports: computeUnits * microLamportsPerUnit / 1_000_000.
func (o *TransactionOptions) PriorityFeeLamports() uint64 {
	return uint64(o.GetComputeUnits()) * o.GetComputeUnitPrice() / 1_000_000
}

// ToOptBytes encodes Option<TransactionOptions> in Borsh form: a one-byte
// presence tag followed by the struct when present. A nil receiver encodes
// the None variant.
func (o *TransactionOptions) ToOptBytes() ([]byte, error) {
	if o == nil {
		return []byte{0}, nil
	}

	data, err := encodeBorsh(*o)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction options: %w", err)
	}

	return append([]byte{1}, data...), nil
}

func encodeBorsh(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeBorsh(data []byte, v any) error {
	return bin.NewBorshDecoder(data).Decode(v)
}
