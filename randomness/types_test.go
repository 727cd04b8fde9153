package randomness

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestTransactionOptions_Clamps(t *testing.T) {
	testCases := []struct {
		name      string
		opts      *TransactionOptions
		wantUnits uint32
		wantPrice uint64
	}{
		{"nil options", nil, DefaultComputeUnits, DefaultComputeUnitPrice},
		{"empty options", &TransactionOptions{}, DefaultComputeUnits, DefaultComputeUnitPrice},
		{"in range", NewTransactionOptions(500_000, 100), 500_000, 100},
		{"below minimum", NewTransactionOptions(1, 0), MinimumComputeUnits, MinimumComputeUnitPrice},
		{"above maximum", NewTransactionOptions(2_000_000, 2_000_000_000), MaximumComputeUnits, MaximumComputeUnitPrice},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.wantUnits, tc.opts.GetComputeUnits())
			require.Equal(t, tc.wantPrice, tc.opts.GetComputeUnitPrice())
		})
	}
}

func TestTransactionOptions_PriorityFeeLamports(t *testing.T) {
	testCases := []struct {
		name string
		opts *TransactionOptions
		want uint64
	}{
		{"defaults", nil, 1},
		{"one lamport per million units", NewTransactionOptions(1_000_000, 1), 1},
		{"thousand micro lamports", NewTransactionOptions(1_000_000, 1000), 1000},
		{"rounds down", NewTransactionOptions(200_000, 1), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.opts.PriorityFeeLamports())
		})
	}
}

func TestTransactionOptions_ToOptBytes(t *testing.T) {
	var none *TransactionOptions
	data, err := none.ToOptBytes()
	require.NoError(t, err)
	require.Equal(t, []byte{0}, data)

	opts := NewTransactionOptions(1_000_000, 100)
	data, err = opts.ToOptBytes()
	require.NoError(t, err)

	expected := []byte{1}          // Some(options)
	expected = append(expected, 1) // Some(compute_units)
	expected = binary.LittleEndian.AppendUint32(expected, 1_000_000)
	expected = append(expected, 1) // Some(compute_unit_price)
	expected = binary.LittleEndian.AppendUint64(expected, 100)
	require.Equal(t, expected, data)
}

func TestTransactionOptions_ToOptBytes_EmptyFields(t *testing.T) {
	data, err := (&TransactionOptions{}).ToOptBytes()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 0}, data)
}

func TestCallback_ToBytes(t *testing.T) {
	program := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	meta := solana.MustPublicKeyFromBase58("SysvarC1ock11111111111111111111111111111111")
	ixData := []byte{190, 217, 49, 162, 99, 26, 73, 234}

	cb := NewCallback(program, []AccountMeta{NewAccountMeta(meta, true, false)}, ixData)
	data, err := cb.ToBytes()
	require.NoError(t, err)

	expected := make([]byte, 0, 80)
	expected = append(expected, program.Bytes()...)
	expected = binary.LittleEndian.AppendUint32(expected, 1) // accounts length
	expected = append(expected, meta.Bytes()...)
	expected = append(expected, 1, 0) // is_signer, is_writable
	expected = binary.LittleEndian.AppendUint32(expected, uint32(len(ixData)))
	expected = append(expected, ixData...)
	require.Equal(t, expected, data)
}

func TestNewCallback_CopiesInputs(t *testing.T) {
	program := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	accounts := []AccountMeta{NewAccountMeta(program, false, true)}
	ixData := []byte{1, 2, 3}

	cb := NewCallback(program, accounts, ixData)

	accounts[0].IsSigner = true
	ixData[0] = 99

	require.False(t, cb.Accounts[0].IsSigner)
	require.Equal(t, byte(1), cb.IxData[0])
}

func TestAccountMeta_ToSolana(t *testing.T) {
	pub := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	meta := NewAccountMeta(pub, true, false).ToSolana()

	require.Equal(t, pub, meta.PublicKey)
	require.True(t, meta.IsSigner)
	require.False(t, meta.IsWritable)
}
