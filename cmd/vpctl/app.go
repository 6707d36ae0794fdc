package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/adapters/secondary/archive"
	"vision-platform-client/internal/adapters/secondary/auth"
	"vision-platform-client/internal/adapters/secondary/kserve"
	"vision-platform-client/internal/adapters/secondary/platform"
	"vision-platform-client/internal/config"
	output "vision-platform-client/internal/core/ports/output"
	"vision-platform-client/internal/core/services"
)

// app carries the loaded configuration into every subcommand.
type app struct {
	cfg *config.Config
}

func (a *app) credentials() auth.Credentials {
	return auth.Credentials{
		Username: a.cfg.Auth.Username,
		Password: a.cfg.Auth.Password,
		Token:    a.cfg.Auth.Token,
	}
}

// connect opens an authenticated session against the platform at baseURL.
func (a *app) connect(ctx context.Context, baseURL string, creds auth.Credentials) (*platform.Client, error) {
	manager := auth.NewManager(auth.Config{
		BaseURL:     baseURL,
		Timeout:     a.cfg.Platform.Timeout,
		RefreshSkew: a.cfg.Auth.RefreshSkew,
	})
	session, err := manager.Acquire(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sign in to %s: %w", baseURL, err)
	}
	log.WithField("url", baseURL).Debug("session acquired")

	return platform.NewClient(platform.Config{
		BaseURL:  baseURL,
		Timeout:  a.cfg.Platform.Timeout,
		PageSize: a.cfg.Platform.PageSize,
	}, session), nil
}

// archiveStore selects S3 when a bucket is configured, the archive directory otherwise.
func (a *app) archiveStore(ctx context.Context) (output.ArchiveStore, error) {
	s3cfg := a.cfg.Archive.S3
	if s3cfg.Bucket != "" {
		store, err := archive.NewS3Store(ctx, archive.S3Config{
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			Endpoint:        s3cfg.Endpoint,
			Region:          s3cfg.Region,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := archive.NewLocalStore(a.cfg.Archive.Dir)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) orchestratorOptions(ctx context.Context, progress services.ProgressFunc) ([]services.Option, error) {
	store, err := a.archiveStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open archive store: %w", err)
	}

	opts := []services.Option{
		services.WithArchiveStore(store),
		services.WithRetryPolicy(services.RetryPolicy{
			MaxAttempts:    a.cfg.Retry.MaxAttempts,
			InitialBackoff: a.cfg.Retry.InitialBackoff,
			Factor:         a.cfg.Retry.Factor,
			Jitter:         a.cfg.Retry.Jitter,
			MaxBackoff:     a.cfg.Retry.MaxBackoff,
		}),
		services.WithMonitorOptions(services.MonitorOptions{
			Interval:      a.cfg.Polling.Interval,
			Timeout:       a.cfg.Polling.Timeout,
			FailOnTimeout: a.cfg.Polling.FailOnTimeout,
		}),
	}
	if a.cfg.Platform.WorkDir != "" {
		opts = append(opts, services.WithWorkDir(a.cfg.Platform.WorkDir))
	}
	if progress != nil {
		opts = append(opts, services.WithProgress(progress))
	}
	return opts, nil
}

// orchestrator connects to the configured platform.
func (a *app) orchestrator(ctx context.Context, progress services.ProgressFunc) (*services.Orchestrator, error) {
	client, err := a.connect(ctx, a.cfg.Platform.URL, a.credentials())
	if err != nil {
		return nil, err
	}
	opts, err := a.orchestratorOptions(ctx, progress)
	if err != nil {
		return nil, err
	}
	return services.NewOrchestrator(client, opts...), nil
}

// servingOrchestrator also wires the KServe publisher.
func (a *app) servingOrchestrator(ctx context.Context) (*services.Orchestrator, error) {
	client, err := a.connect(ctx, a.cfg.Platform.URL, a.credentials())
	if err != nil {
		return nil, err
	}
	opts, err := a.orchestratorOptions(ctx, nil)
	if err != nil {
		return nil, err
	}

	publisher, err := kserve.NewPublisher(&a.cfg.Kubernetes)
	if err != nil {
		log.Warnf("KServe publisher init failed (deployment will only be archived): %v", err)
	} else {
		opts = append(opts, services.WithPublisher(publisher))
	}
	return services.NewOrchestrator(client, opts...), nil
}
