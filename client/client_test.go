package client

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"github.com/switchboard-xyz/solana-randomness-go/randomness"
)

func TestOptions(t *testing.T) {
	c := &Client{commitment: rpc.CommitmentConfirmed}

	WithCommitment(rpc.CommitmentFinalized)(c)
	require.Equal(t, rpc.CommitmentFinalized, c.commitment)

	WithComputeBudget(400_000, 10_000)(c)
	require.Equal(t, uint32(400_000), c.computeUnitLimit)
	require.Equal(t, uint64(10_000), c.computeUnitPrice)
}

func TestPayer(t *testing.T) {
	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	c := &Client{payer: payer}
	require.Equal(t, payer.PublicKey(), c.Payer())
}

func TestRequestRandomness_RejectsBadNumBytes(t *testing.T) {
	c := &Client{}

	for _, numBytes := range []uint8{0, 33, 255} {
		_, err := c.RequestRandomness(context.Background(), numBytes, randomness.Callback{}, nil)
		require.Error(t, err, "numBytes: %d", numBytes)
	}
}
