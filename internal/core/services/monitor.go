package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
)

// MonitorOptions controls job polling. Zero fields fall back to the
// orchestrator defaults.
type MonitorOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	// FailOnTimeout turns a timeout into an ErrTimeout error instead of a
	// soft result.
	FailOnTimeout bool
}

type TrainRequest struct {
	ProjectID string
	TaskID    string
	Monitor   MonitorOptions
}

// TrainResult is the last observed state of a monitored job. TimedOut
// means the job was still running when monitoring stopped; the remote job
// keeps running.
type TrainResult struct {
	LastKnown *domain.Job
	TimedOut  bool
	Polls     int
}

// Err summarizes the outcome: nil only for a job that SUCCEEDED.
func (r *TrainResult) Err() error {
	switch {
	case r.TimedOut:
		return fmt.Errorf("job %s still %s: %w", r.LastKnown.ID, r.LastKnown.State, domain.ErrTimeout)
	case r.LastKnown == nil:
		return domain.ErrJobFailed
	case r.LastKnown.State != domain.JobStateSucceeded:
		return fmt.Errorf("job %s ended %s: %w", r.LastKnown.ID, r.LastKnown.State, domain.ErrJobFailed)
	}
	return nil
}

func (o *Orchestrator) monitorOptions(opts MonitorOptions) MonitorOptions {
	if opts.Interval <= 0 {
		opts.Interval = o.monitor.Interval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = o.monitor.Timeout
	}
	opts.FailOnTimeout = opts.FailOnTimeout || o.monitor.FailOnTimeout
	return opts
}

// TrainAndMonitor submits a training job and follows it until it is
// terminal or the timeout elapses.
func (o *Orchestrator) TrainAndMonitor(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	job, err := retry(ctx, o, "job.submit", func() (*domain.Job, error) {
		return o.client.SubmitTraining(ctx, req.ProjectID, req.TaskID)
	})
	if err != nil {
		return nil, fmt.Errorf("submit training: %w", err)
	}

	log.WithFields(log.Fields{
		"job_id":     job.ID,
		"project_id": req.ProjectID,
		"task_id":    req.TaskID,
	}).Info("training job submitted")
	return o.MonitorJob(ctx, job.ID, req.Monitor)
}

// MonitorJob polls a job at a bounded interval. Transient failures while
// polling are retried, but never past the deadline. On timeout the last known
// state is returned without touching the remote job.
func (o *Orchestrator) MonitorJob(ctx context.Context, jobID string, opts MonitorOptions) (*TrainResult, error) {
	opts = o.monitorOptions(opts)
	deadline := o.clock.Now().Add(opts.Timeout)
	res := &TrainResult{}
	logger := log.WithField("job_id", jobID)

	for {
		job, err := retryUntil(ctx, o, "job.get", deadline, func() (*domain.Job, error) {
			return o.client.GetJob(ctx, jobID)
		})
		if err != nil {
			if res.LastKnown != nil && domain.IsRetryable(err) && !o.clock.Now().Before(deadline) {
				logger.WithError(err).Warn("job unreachable until the monitoring deadline")
				return o.timedOut(res, opts, logger)
			}
			return res, fmt.Errorf("poll job %s: %w", jobID, err)
		}
		res.LastKnown = job
		res.Polls++

		logger.WithFields(log.Fields{
			"state":    job.State,
			"progress": job.Progress,
		}).Debug("job polled")
		o.report(ProgressEvent{Workflow: "train", Done: int(job.Progress), Total: 100, Item: string(job.State)})

		if job.State.IsTerminal() {
			logger.WithField("state", job.State).Info("job finished")
			return res, nil
		}

		remaining := deadline.Sub(o.clock.Now())
		if remaining <= 0 {
			return o.timedOut(res, opts, logger)
		}

		if err := o.sleeper.Sleep(ctx, min(opts.Interval, remaining)); err != nil {
			return res, err
		}
	}
}

func (o *Orchestrator) timedOut(res *TrainResult, opts MonitorOptions, logger *log.Entry) (*TrainResult, error) {
	res.TimedOut = true
	logger.WithField("state", res.LastKnown.State).Warn("stopped monitoring job before it finished")
	if opts.FailOnTimeout {
		return res, res.Err()
	}
	return res, nil
}
