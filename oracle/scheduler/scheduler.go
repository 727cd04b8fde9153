package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/config"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/submitter"
	"github.com/switchboard-xyz/solana-randomness-go/oracle/types"
)

// Scheduler runs randomness request jobs on a worker pool and reconciles
// settlement events against the requests still pending.
type Scheduler struct {
	wg          sync.WaitGroup
	quit        chan struct{}
	pending     cmap.ConcurrentMap[string, *types.Job]
	jobQueue    chan *types.Job
	resultQueue chan types.JobResult
	submitter   *submitter.Submitter
	ctx         context.Context
}

func New(ctx context.Context, sub *submitter.Submitter) *Scheduler {
	return &Scheduler{
		wg:          sync.WaitGroup{},
		quit:        make(chan struct{}),
		pending:     cmap.New[*types.Job](),
		jobQueue:    make(chan *types.Job, config.ChannelSize()),
		resultQueue: make(chan types.JobResult, config.ChannelSize()),
		submitter:   sub,
		ctx:         ctx,
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < runtime.NumCPU(); i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

func (s *Scheduler) Stop() {
	close(s.quit)
	s.wg.Wait()
}

// ProcessJob queues a request job for execution. Jobs are dropped when the
// queue is full rather than blocking the event loop.
func (s *Scheduler) ProcessJob(job *types.Job) {
	if job == nil || job.Type != types.Request {
		return
	}

	select {
	case s.jobQueue <- job:
	default:
		log.Errorf("job queue is full, dropping job %q", job.Label)
	}
}

// ProcessSettled matches a settle job against a pending request, verifies it,
// and emits a result. Requests made by other parties mention the same program,
// so unknown request accounts are not an error. Periodic jobs are re-queued
// after their period elapses.
func (s *Scheduler) ProcessSettled(settle *types.Job) error {
	if settle == nil || settle.Type != types.Settle {
		return nil
	}

	job, ok := s.pending.Get(settle.Request.String())
	if !ok {
		log.Debugf("settlement for unknown request %s", settle.Request)
		return nil
	}
	s.pending.Remove(settle.Request.String())

	if !settle.User.Equals(config.Address()) {
		return fmt.Errorf("settlement for request %s names user %s, expected %s", settle.Request, settle.User, config.Address())
	}

	if settle.SettledSlot < settle.RequestSlot {
		return fmt.Errorf("settlement for request %s went backwards: request slot %d, settled slot %d", settle.Request, settle.RequestSlot, settle.SettledSlot)
	}

	if settle.IsSuccess && len(settle.Randomness) != int(job.NumBytes) {
		return fmt.Errorf("settlement for request %s returned %d bytes, expected %d", settle.Request, len(settle.Randomness), job.NumBytes)
	}

	s.resultQueue <- types.JobResult{
		Label:       job.Label,
		Request:     settle.Request,
		User:        settle.User,
		IsSuccess:   settle.IsSuccess,
		Randomness:  settle.Randomness,
		RequestSlot: settle.RequestSlot,
		SettledSlot: settle.SettledSlot,
		Round:       job.Round,
	}

	if job.Period > 0 {
		s.reschedule(job)
	}

	return nil
}

// Pending reports how many requests await settlement.
func (s *Scheduler) Pending() int {
	return s.pending.Count()
}

func (s *Scheduler) Result() <-chan types.JobResult {
	return s.resultQueue
}

func (s *Scheduler) reschedule(job *types.Job) {
	next := &types.Job{
		Label:    job.Label,
		Type:     types.Request,
		NumBytes: job.NumBytes,
		Period:   job.Period,
		Callback: job.Callback,
		Round:    job.Round + 1,
	}

	timer := time.AfterFunc(job.Period, func() {
		s.ProcessJob(next)
	})

	go func() {
		select {
		case <-s.quit:
			timer.Stop()
		case <-s.ctx.Done():
			timer.Stop()
		case <-time.After(job.Period):
		}
	}()
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case job := <-s.jobQueue:
			request, err := executeRequest(s, job)
			if err != nil {
				log.Errorf("failed to execute job %q: %v", job.Label, err)
				continue
			}

			job.Request = request
			s.pending.Set(request.String(), job)
			log.Debugf("request %s pending for job %q round %d", request, job.Label, job.Round)

		case <-s.quit:
			return

		case <-s.ctx.Done():
			return
		}
	}
}
