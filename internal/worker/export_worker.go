package worker

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/ports"
)

// Consumer feeds change messages to a handler until its context ends.
type Consumer interface {
	ConsumeLogChanges(ctx context.Context, handler amqp.Handler) error
}

// ExportWorker keeps the external export in step with the change feed.
type ExportWorker struct {
	repo        ports.Backend
	exporter    ports.LogExporter
	logger      *applog.Logger
	concurrency int
}

func NewExportWorker(repo ports.Backend, exporter ports.LogExporter, concurrency int, logger *applog.Logger) *ExportWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExportWorker{
		repo:        repo,
		exporter:    exporter,
		logger:      logger.WithComponent(applog.ComponentWorker),
		concurrency: concurrency,
	}
}

// HandleChange exports a created or updated log, or removes a deleted one.
// A log that vanished before it could be exported is skipped.
func (w *ExportWorker) HandleChange(ctx context.Context, c core.LogChange) error {
	fields := applog.NewFields().WithLog(c.LogID, c.OwnerID)
	fields[applog.FieldChangeKind] = string(c.Kind)
	w.logger.InfoContext(ctx, "Processing log change", fields.ToSlice()...)

	if c.Kind == core.LogDeleted {
		if err := w.exporter.RemoveLog(ctx, c.LogID, c.Title); err != nil {
			return fmt.Errorf("remove exported log %s: %w", c.LogID, err)
		}
		return nil
	}

	l, err := w.repo.Get(ctx, c.LogID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Log no longer exists, skipping export", applog.FieldLogID, c.LogID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load log %s: %w", c.LogID, err)
	}
	if err := w.exporter.ExportLog(ctx, l); err != nil {
		return fmt.Errorf("export log %s: %w", c.LogID, err)
	}
	return nil
}

// Backfill exports every log of the given owners, a few at a time. It covers
// changes published while the worker was down.
func (w *ExportWorker) Backfill(ctx context.Context, owners []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	total := 0
	for _, owner := range owners {
		logs, err := w.repo.Query(ctx, owner)
		if err != nil {
			_ = g.Wait()
			return fmt.Errorf("query logs of %s: %w", owner, err)
		}
		for _, l := range logs {
			total++
			g.Go(func() error {
				if err := w.exporter.ExportLog(ctx, l); err != nil {
					return fmt.Errorf("export log %s: %w", l.ID, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Backfill complete",
		applog.FieldOperation, applog.OpBackfill, applog.FieldCount, total)
	return nil
}

// Run backfills and then consumes the change feed until ctx ends.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer, owners []string) error {
	if len(owners) > 0 {
		if err := w.Backfill(ctx, owners); err != nil {
			w.logger.ErrorContext(ctx, "Backfill failed, continuing with live changes", "error", err)
		}
	}
	return consumer.ConsumeLogChanges(ctx, func(ctx context.Context, msg *amqp.LogChangeMessage) error {
		return w.HandleChange(ctx, msg.Change())
	})
}
