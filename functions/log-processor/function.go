// Package logprocessor is the scheduled Cloud Function that runs one
// pipeline pass: fetch unprocessed raw entries, parse, persist, advance the
// checkpoint.
package logprocessor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/onalog/server/pkg"
	"github.com/onalog/server/pkg/bootstrap"
	"github.com/onalog/server/pkg/framework"
	"github.com/onalog/server/pkg/infrastructure/sentry"
	"github.com/onalog/server/pkg/pipeline"
	"github.com/onalog/server/pkg/runlock"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("ProcessLogs", ProcessLogs)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			svcErr = err
			return
		}
		if err := baseSvc.Config.RequireParser(); err != nil {
			svcErr = err
			return
		}
		svc = baseSvc
	})
	return svc, svcErr
}

// ProcessLogs is the Cloud Function entry point, triggered by Cloud
// Scheduler via Pub/Sub.
func ProcessLogs(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("log-processor", svc, processHandler)(ctx, e)
}

func processHandler(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
	svc := fwCtx.Service
	defer sentry.Flush(2 * time.Second)

	lock := runlock.New(svc.Firestore, shared.RunLockResource)
	if err := lock.Acquire(ctx); err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			// Another pass is mid-flight; skipping is safe because the next
			// scheduled trigger will pick the entries up.
			fwCtx.Logger.Info("Run lock held, skipping this pass")
			return map[string]interface{}{"status": "SKIPPED", "reason": "lock_held"}, nil
		}
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			fwCtx.Logger.Warn("Failed to release run lock", "error", err)
		}
	}()

	driver := &pipeline.Driver{
		Store:          svc.Sheets,
		Parser:         svc.Parser,
		Checkpoints:    svc.DB,
		Logger:         fwCtx.Logger,
		Artifacts:      svc.Store,
		ArtifactBucket: svc.Config.GCSArtifactBucket,
		FetchLimit:     svc.Config.FetchLimit,
	}

	summary, err := driver.Run(ctx)
	if summary != nil {
		publishSummary(ctx, fwCtx, summary)
	}
	if err != nil {
		return summaryOutputs(summary), err
	}
	return summaryOutputs(summary), nil
}

// publishSummary emits the per-run report event. Best-effort: downstream
// consumers are observational only.
func publishSummary(ctx context.Context, fwCtx *framework.FrameworkContext, summary *pipeline.RunSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		fwCtx.Logger.Warn("Failed to marshal run summary", "error", err)
		return
	}
	msgID, err := fwCtx.Service.Pub.Publish(ctx, shared.TopicRunSummary, data)
	if err != nil {
		fwCtx.Logger.Warn("Failed to publish run summary", "error", err)
		return
	}
	fwCtx.Logger.Info("Run summary published", "message_id", msgID)
}

func summaryOutputs(summary *pipeline.RunSummary) map[string]interface{} {
	if summary == nil {
		return nil
	}
	return map[string]interface{}{
		"fetched":        summary.Fetched,
		"processed":      summary.Processed,
		"ok":             summary.OK,
		"needs_review":   summary.NeedsReview,
		"failed":         summary.Failed,
		"last_timestamp": summary.LastTimestamp,
	}
}
