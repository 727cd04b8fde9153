package randomness

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the on-chain address of the Solana Randomness Service.
var ProgramID = solana.MustPublicKeyFromBase58("RANDMo5gFnqnXJW5Z52KNmd24sAo95KAd5VbiCtq5Rh")

var (
	// StateAccount is the service's global state account, a PDA derived from
	// the "STATE" seed under the service program.
	StateAccount = solana.MustPublicKeyFromBase58("889J3BcnDDBMA651BoZNnuKrhQtXkLRzDuKhnJkWUfKA")

	// RewardWallet collects the escrowed fees paid out to the fulfilling oracle.
	RewardWallet = solana.MustPublicKeyFromBase58("3X7Jy3dc7eRSP9ECWvxiiQWG8gfwmYq1zENfWpzygt6D")

	// NativeMint is the wrapped SOL mint. Requests are paid in the native mint only.
	NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	// SwitchboardProgramID is the attestation program the service's oracle runs under.
	SwitchboardProgramID = solana.MustPublicKeyFromBase58("sbattyXrzedoNATfc4L31wC9Mhxsi1BmFhTiN8gDshx")
)

// Switchboard function and service accounts per cluster.
var (
	MainnetFunction = solana.MustPublicKeyFromBase58("yxvdQ9D6eovAQqacSyAL9vYhXXtdtnmgCABfaz8cg2W")
	MainnetService  = solana.MustPublicKeyFromBase58("3gGs95XHv47gY6aUvSPhQmVrWYt3M6Lz3nxE9eMS3bot")

	DevnetFunction = solana.MustPublicKeyFromBase58("AHV7ygefHZQ5extiZ4GbseGANg3AwBWgSUfnUktTrxjd")
	DevnetService  = solana.MustPublicKeyFromBase58("2fpdEbugwThMjRQ728Ne4zwGsrjFcCtmYDnwGtzScfnL")
)

const stateSeed = "STATE"

// FindStateAddress derives the service state PDA and its bump seed.
func FindStateAddress() (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(stateSeed)}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive state address: %w", err)
	}

	return addr, bump, nil
}

// FindEscrowAddress derives the escrow token account for a request: the
// associated token account of the request account for the native mint.
func FindEscrowAddress(request solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(request, NativeMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive escrow address: %w", err)
	}

	return addr, nil
}
