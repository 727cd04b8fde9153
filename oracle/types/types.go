package types

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/config"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
	"github.com/switchboard-xyz/solana-randomness-go/randomness"
)

// Job is one unit of work for the scheduler: either a randomness request to
// submit or a settlement event to reconcile against a pending request.
type Job struct {
	Label    string
	Type     JobType
	NumBytes uint8
	Period   time.Duration
	Callback randomness.Callback

	// Request is the request account once submitted; for Settle jobs it is
	// the account named by the settlement event.
	Request solana.PublicKey
	Round   uint64

	// Settlement payload, populated on Settle jobs only.
	User        solana.PublicKey
	IsSuccess   bool
	Randomness  []byte
	RequestSlot uint64
	SettledSlot uint64
}

// JobResult is a settled randomness request.
type JobResult struct {
	Label       string
	Request     solana.PublicKey
	User        solana.PublicKey
	IsSuccess   bool
	Randomness  []byte
	RequestSlot uint64
	SettledSlot uint64
	Round       uint64
}

type JobType byte

const (
	Request JobType = iota
	Settle
)

// MakeJobs converts the configured request schedule into request jobs.
func MakeJobs() []*Job {
	log.Debugf("start making jobs")

	configured := config.Jobs()
	jobs := make([]*Job, 0, len(configured))

	for _, jc := range configured {
		jobs = append(jobs, &Job{
			Label:    jc.Label,
			Type:     Request,
			NumBytes: jc.NumBytes,
			Period:   time.Duration(jc.PeriodSeconds) * time.Second,
			Callback: MakeCallback(),
		})
	}

	log.Debugf("end making jobs, %d", len(jobs))

	if len(jobs) == 0 {
		return nil
	}

	return jobs
}

// MakeCallback builds the callback descriptor requests carry: the configured
// consumer program with the service state as the signing account and the
// request account for lookup, mirroring how consumer programs declare their
// settlement instruction. Returns a zero callback when no program is
// configured.
func MakeCallback() randomness.Callback {
	program := config.CallbackProgram()
	if program.IsZero() {
		return randomness.Callback{}
	}

	return randomness.NewCallback(program, []randomness.AccountMeta{
		randomness.NewAccountMeta(randomness.StateAccount, true, false),
	}, config.CallbackDiscriminator())
}

// MakeSettleJob converts a settlement event into a settle job.
func MakeSettleJob(event *randomness.SimpleRandomnessV1SettledEvent) *Job {
	if event == nil {
		return nil
	}

	return &Job{
		Type:        Settle,
		Request:     event.Request,
		User:        event.User,
		IsSuccess:   event.IsSuccess,
		Randomness:  event.Randomness,
		RequestSlot: event.RequestSlot,
		SettledSlot: event.SettledSlot,
	}
}
