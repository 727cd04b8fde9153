package randomness

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestFindStateAddress(t *testing.T) {
	addr, bump, err := FindStateAddress()
	require.NoError(t, err)
	require.Equal(t, StateAccount, addr)
	require.Equal(t, uint8(255), bump)
}

func TestFindEscrowAddress(t *testing.T) {
	request := solana.NewWallet().PublicKey()

	escrow, err := FindEscrowAddress(request)
	require.NoError(t, err)
	require.False(t, escrow.IsZero())
	require.NotEqual(t, request, escrow)

	// Derivation is deterministic.
	again, err := FindEscrowAddress(request)
	require.NoError(t, err)
	require.Equal(t, escrow, again)

	// It matches the associated token account of the request for the native mint.
	ata, _, err := solana.FindAssociatedTokenAddress(request, NativeMint)
	require.NoError(t, err)
	require.Equal(t, ata, escrow)
}
