package services

import (
	"context"
	"os"
	"time"

	"k8s.io/utils/clock"

	output "vision-platform-client/internal/core/ports/output"
)

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultMonitorTimeout = 30 * time.Minute
)

// Sleeper pauses a workflow between retry attempts and poll iterations.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type clockSleeper struct {
	clock clock.Clock
}

// NewClockSleeper returns a Sleeper driven by c that wakes early when ctx ends.
func NewClockSleeper(c clock.Clock) Sleeper {
	return clockSleeper{clock: c}
}

func (s clockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := s.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// ProgressEvent reports one finished step of a long-running workflow.
type ProgressEvent struct {
	Workflow string
	Done     int
	Total    int
	Item     string
	Err      error
}

type ProgressFunc func(ProgressEvent)

// Orchestrator composes resource client calls into end-to-end workflows.
// It holds no remote state of its own; every workflow runs one remote call
// at a time and checks ctx between steps.
type Orchestrator struct {
	client    output.PlatformClient
	archives  output.ArchiveStore
	publisher output.ServingPublisher

	clock    clock.PassiveClock
	sleeper  Sleeper
	retry    RetryPolicy
	monitor  MonitorOptions
	workDir  string
	progress ProgressFunc
}

type Option func(*Orchestrator)

// WithClock sets the clock for deadlines and the default sleeper.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
		o.sleeper = NewClockSleeper(c)
	}
}

// WithSleeper overrides how the orchestrator waits.
func WithSleeper(s Sleeper) Option {
	return func(o *Orchestrator) { o.sleeper = s }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) { o.retry = p }
}

// WithMonitorOptions sets the polling defaults used when a request leaves them zero.
func WithMonitorOptions(m MonitorOptions) Option {
	return func(o *Orchestrator) { o.monitor = m }
}

func WithArchiveStore(s output.ArchiveStore) Option {
	return func(o *Orchestrator) { o.archives = s }
}

func WithPublisher(p output.ServingPublisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithWorkDir sets where staging and deployment directories are created.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) { o.workDir = dir }
}

func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

func NewOrchestrator(client output.PlatformClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		clock:   clock.RealClock{},
		sleeper: NewClockSleeper(clock.RealClock{}),
		retry:   DefaultRetryPolicy(),
		monitor: MonitorOptions{Interval: DefaultPollInterval, Timeout: DefaultMonitorTimeout},
		workDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Client exposes the resource client for one-off calls.
func (o *Orchestrator) Client() output.PlatformClient {
	return o.client
}

func (o *Orchestrator) report(ev ProgressEvent) {
	if o.progress != nil {
		o.progress(ev)
	}
}
