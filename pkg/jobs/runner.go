// Package jobs runs named background jobs whose state is persisted in storage.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/metrics"
	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

var ErrUnknownJob = errors.New("unknown job")

// Func is the body of a registered job. kwargs are the values given to Enqueue.
type Func func(ctx context.Context, job *storage.JobResult) error

// Store is the job persistence the runner needs.
type Store interface {
	CreateJobResult(ctx context.Context, j storage.JobResult) error
	ClaimJob(ctx context.Context, id string) (bool, error)
	FinishJob(ctx context.Context, id string, jobErr error) error
	GetJobResult(ctx context.Context, id string) (*storage.JobResult, error)
	ListPendingJobIDs(ctx context.Context, limit int) ([]string, error)
	RequeueRunningJobs(ctx context.Context) (int, error)
}

type Options struct {
	Workers      int
	PollInterval time.Duration
	Metrics      *metrics.Collector
}

type Runner struct {
	store   Store
	opts    Options
	wake    chan string
	metrics *metrics.Collector

	mu    sync.RWMutex
	funcs map[string]Func

	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewRunner(store Store, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Runner{
		store:   store,
		opts:    opts,
		wake:    make(chan string, 256),
		metrics: opts.Metrics,
		funcs:   make(map[string]Func),
	}
}

// Register makes name available to Enqueue. Registering twice replaces the func.
func (r *Runner) Register(name string, fn Func) {
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

// Registered reports whether name has a func.
func (r *Runner) Registered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[name]
	return ok
}

// Enqueue records a pending job and wakes a worker. It never waits for the job.
func (r *Runner) Enqueue(ctx context.Context, name, user string, kwargs map[string]any) (string, error) {
	if !r.Registered(name) {
		return "", fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	id := uuid.NewString()
	err := r.store.CreateJobResult(ctx, storage.JobResult{
		ID:      id,
		JobName: name,
		User:    user,
		Kwargs:  kwargs,
		Status:  storage.JobPending,
	})
	if err != nil {
		return "", fmt.Errorf("persist job %q: %w", name, err)
	}
	r.metrics.JobEnqueued(name)
	utils.Log.WithFields(logrus.Fields{"job": name, "id": id, "user": user}).Debug("Job enqueued")

	// A full channel is fine, the poll sweep will pick the job up.
	select {
	case r.wake <- id:
	default:
	}
	return id, nil
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
// Jobs an earlier process left pending or running are picked up by the first sweep.
func (r *Runner) Start(ctx context.Context) {
	if n, err := r.store.RequeueRunningJobs(ctx); err != nil {
		utils.Log.WithError(err).Warn("Could not requeue interrupted jobs")
	} else if n > 0 {
		utils.Log.WithField("count", n).Info("Requeued interrupted jobs")
	}

	ctx, r.cancel = context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	r.group = g

	for i := 0; i < r.opts.Workers; i++ {
		g.Go(func() error {
			r.work(ctx)
			return nil
		})
	}
	g.Go(func() error {
		r.sweep(ctx)
		ticker := time.NewTicker(r.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	})
	utils.Log.WithField("workers", r.opts.Workers).Info("Job runner started")
}

// Stop cancels the workers and waits for running jobs to return.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	_ = r.group.Wait()
	utils.Log.Info("Job runner stopped")
}

func (r *Runner) sweep(ctx context.Context) {
	ids, err := r.store.ListPendingJobIDs(ctx, 100)
	if err != nil {
		if ctx.Err() == nil {
			utils.Log.WithError(err).Warn("Could not list pending jobs")
		}
		return
	}
	for _, id := range ids {
		select {
		case r.wake <- id:
		case <-ctx.Done():
			return
		default:
			return
		}
	}
}

func (r *Runner) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.wake:
			r.run(ctx, id)
		}
	}
}

// run claims and executes one job. Losing the claim to another worker is not an error.
func (r *Runner) run(ctx context.Context, id string) {
	claimed, err := r.store.ClaimJob(ctx, id)
	if err != nil {
		utils.Log.WithError(err).WithField("id", id).Warn("Could not claim job")
		return
	}
	if !claimed {
		return
	}
	job, err := r.store.GetJobResult(ctx, id)
	if err != nil {
		utils.Log.WithError(err).WithField("id", id).Error("Could not load claimed job")
		_ = r.store.FinishJob(context.WithoutCancel(ctx), id, err)
		return
	}

	log := utils.Log.WithFields(logrus.Fields{"job": job.JobName, "id": id})
	start := time.Now()
	jobErr := r.execute(ctx, job)

	status := string(storage.JobCompleted)
	if jobErr != nil {
		status = string(storage.JobFailed)
		log.WithError(jobErr).Warn("Job failed")
	} else {
		log.WithField("duration", time.Since(start)).Info("Job completed")
	}
	r.metrics.JobFinished(job.JobName, status, time.Since(start))

	// Record the outcome even when shutting down.
	if err := r.store.FinishJob(context.WithoutCancel(ctx), id, jobErr); err != nil {
		log.WithError(err).Error("Could not record job outcome")
	}
}

func (r *Runner) execute(ctx context.Context, job *storage.JobResult) (err error) {
	r.mu.RLock()
	fn, ok := r.funcs[job.JobName]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, job.JobName)
	}
	defer func() {
		if p := recover(); p != nil {
			utils.Log.Debugf("job %s panic stack: %s", job.ID, debug.Stack())
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return fn(ctx, job)
}
