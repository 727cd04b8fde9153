package types

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/suite"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/config"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
	"github.com/switchboard-xyz/solana-randomness-go/randomness"
)

type TypesTestSuite struct {
	suite.Suite
	payer solana.PrivateKey
}

func TestTypesSuite(t *testing.T) {
	suite.Run(t, new(TypesTestSuite))
}

func (suite *TypesTestSuite) SetupSuite() {
	log.InitLogger()

	var err error
	suite.payer, err = solana.NewRandomPrivateKey()
	suite.Require().NoError(err)
}

func (suite *TypesTestSuite) TestMakeJobs() {
	config.SetForTesting("http://localhost:8899", "ws://localhost:8900", "confirmed", "", suite.payer,
		[]config.JobConfig{
			{Label: "fast", NumBytes: 8, PeriodSeconds: 30},
			{Label: "slow", NumBytes: 32, PeriodSeconds: 3600},
		})

	jobs := MakeJobs()
	suite.Require().Len(jobs, 2)

	suite.Equal("fast", jobs[0].Label)
	suite.Equal(Request, jobs[0].Type)
	suite.Equal(uint8(8), jobs[0].NumBytes)
	suite.Equal(30*time.Second, jobs[0].Period)

	suite.Equal("slow", jobs[1].Label)
	suite.Equal(uint8(32), jobs[1].NumBytes)
	suite.Equal(time.Hour, jobs[1].Period)
}

func (suite *TypesTestSuite) TestMakeJobs_Empty() {
	config.SetForTesting("http://localhost:8899", "ws://localhost:8900", "confirmed", "", suite.payer, nil)

	suite.Nil(MakeJobs())
}

func (suite *TypesTestSuite) TestMakeCallback_NoProgram() {
	config.SetForTesting("http://localhost:8899", "ws://localhost:8900", "confirmed", "", suite.payer, nil)

	callback := MakeCallback()
	suite.True(callback.ProgramID.IsZero())
	suite.Empty(callback.Accounts)
	suite.Empty(callback.IxData)
}

func (suite *TypesTestSuite) TestMakeCallback_WithProgram() {
	program := solana.NewWallet().PublicKey()
	config.SetForTesting("http://localhost:8899", "ws://localhost:8900", "confirmed", program.String(), suite.payer, nil)

	callback := MakeCallback()
	suite.Equal(program, callback.ProgramID)

	suite.Require().Len(callback.Accounts, 1)
	suite.Equal(randomness.StateAccount, callback.Accounts[0].PublicKey)
	suite.True(callback.Accounts[0].IsSigner)
	suite.False(callback.Accounts[0].IsWritable)

	suite.Equal(config.CallbackDiscriminator(), callback.IxData)
}

func (suite *TypesTestSuite) TestMakeSettleJob() {
	request := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()

	event := &randomness.SimpleRandomnessV1SettledEvent{
		Request:     request,
		User:        user,
		IsSuccess:   true,
		Randomness:  []byte{1, 2, 3, 4},
		RequestSlot: 100,
		SettledSlot: 103,
	}

	job := MakeSettleJob(event)
	suite.Require().NotNil(job)
	suite.Equal(Settle, job.Type)
	suite.Equal(request, job.Request)
	suite.Equal(user, job.User)
	suite.True(job.IsSuccess)
	suite.Equal([]byte{1, 2, 3, 4}, job.Randomness)
	suite.Equal(uint64(100), job.RequestSlot)
	suite.Equal(uint64(103), job.SettledSlot)
}

func (suite *TypesTestSuite) TestMakeSettleJob_Nil() {
	suite.Nil(MakeSettleJob(nil))
}
