package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/suite"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
)

type ConfigTestSuite struct {
	suite.Suite
	payer solana.PrivateKey
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupSuite() {
	log.InitLogger()

	var err error
	suite.payer, err = solana.NewRandomPrivateKey()
	suite.Require().NoError(err)
}

func (suite *ConfigTestSuite) SetupTest() {
	SetForTesting(
		"http://localhost:8899",
		"ws://localhost:8900",
		"confirmed",
		"",
		suite.payer,
		[]JobConfig{{Label: "default", NumBytes: 8, PeriodSeconds: 60}},
	)
}

func (suite *ConfigTestSuite) TestGetters() {
	suite.Equal("http://localhost:8899", RPCEndpoint())
	suite.Equal("ws://localhost:8900", WSEndpoint())
	suite.Equal(rpc.CommitmentConfirmed, Commitment())
	suite.Equal(uint32(200_000), ComputeUnits())
	suite.Equal(uint64(1), ComputeUnitPrice())
	suite.True(CallbackProgram().IsZero())
}

func (suite *ConfigTestSuite) TestCommitmentParsing() {
	testCases := []struct {
		configured string
		expected   rpc.CommitmentType
	}{
		{"processed", rpc.CommitmentProcessed},
		{"confirmed", rpc.CommitmentConfirmed},
		{"finalized", rpc.CommitmentFinalized},
		{"", rpc.CommitmentConfirmed},
		{"bogus", rpc.CommitmentConfirmed},
	}

	for _, tc := range testCases {
		SetForTesting("http://localhost:8899", "ws://localhost:8900", tc.configured, "", suite.payer, nil)
		suite.Equal(tc.expected, Commitment(), "commitment: %q", tc.configured)
	}
}

func (suite *ConfigTestSuite) TestPayerAndAddress() {
	suite.Equal(suite.payer, Payer())
	suite.Equal(suite.payer.PublicKey(), Address())
}

func (suite *ConfigTestSuite) TestCallbackProgram() {
	program := solana.NewWallet().PublicKey()

	SetForTesting("http://localhost:8899", "ws://localhost:8900", "confirmed", program.String(), suite.payer, nil)
	suite.Equal(program, CallbackProgram())
}

func (suite *ConfigTestSuite) TestCallbackDiscriminator() {
	disc := CallbackDiscriminator()

	suite.Len(disc, 8)
	suite.Equal([]byte{0xbe, 0xd9, 0x31, 0xa2, 0x63, 0x1a, 0x49, 0xea}, disc)
}

func (suite *ConfigTestSuite) TestJobsReturnsCopy() {
	jobs := Jobs()
	suite.Require().Len(jobs, 1)
	suite.Equal("default", jobs[0].Label)
	suite.Equal(uint8(8), jobs[0].NumBytes)
	suite.Equal(uint64(60), jobs[0].PeriodSeconds)

	jobs[0].Label = "mutated"
	suite.Equal("default", Jobs()[0].Label)
}

func (suite *ConfigTestSuite) TestSetComputeUnitPrice() {
	SetComputeUnitPrice(5_000)
	suite.Equal(uint64(5_000), ComputeUnitPrice())
}

func (suite *ConfigTestSuite) TestLoadCreatesDefaultConfig() {
	tempDir, err := os.MkdirTemp("", "randomnessd_test")
	suite.Require().NoError(err)
	defer os.RemoveAll(tempDir)

	suite.Require().NoError(flag.Set("home", tempDir))

	Load()

	_, err = os.Stat(filepath.Join(tempDir, "config.toml"))
	suite.NoError(err)

	suite.Equal("http://localhost:8899", RPCEndpoint())
	suite.Equal("ws://localhost:8900", WSEndpoint())
	suite.Equal(rpc.CommitmentConfirmed, Commitment())
	suite.Equal(filepath.Join(tempDir, "payer.json"), PayerPath())
	suite.Require().Len(Jobs(), 1)
	suite.Equal("default", Jobs()[0].Label)
}

func (suite *ConfigTestSuite) TestValidateConfigRejectsBadJobs() {
	globalConfig.Jobs = []JobConfig{{Label: "too-big", NumBytes: 33, PeriodSeconds: 60}}
	err := validateConfig()
	suite.ErrorContains(err, "num_bytes must be between 1 and 32")

	globalConfig.Jobs = []JobConfig{{Label: "no-period", NumBytes: 8}}
	err = validateConfig()
	suite.ErrorContains(err, "period_seconds is required")
}

func (suite *ConfigTestSuite) TestValidateConfigRejectsBadCallback() {
	globalConfig.Callback.Program = "not-a-pubkey"
	suite.ErrorContains(validateConfig(), "invalid callback program")

	globalConfig.Callback.Program = ""
	globalConfig.Callback.Discriminator = "abcd"
	suite.ErrorContains(validateConfig(), "discriminator must be 8 bytes")
}

func (suite *ConfigTestSuite) TestChannelSize() {
	suite.Equal(1024, ChannelSize())
}
