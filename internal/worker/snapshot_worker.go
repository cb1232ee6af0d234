// Package worker maintains the JSON snapshot document from ledger events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/snapshot"
)

// SnapshotWorker rewrites the snapshot document whenever a group's ledger
// changes. Events carry identifiers only, so every rewrite reads the
// current state from the store; a periodic full resync covers events lost
// while the worker was down.
type SnapshotWorker struct {
	store ledger.Store
	path  string
}

func NewSnapshotWorker(store ledger.Store, path string) *SnapshotWorker {
	return &SnapshotWorker{
		store: store,
		path:  path,
	}
}

// HandleLedgerEvent processes a single ledger change event from AMQP.
func (w *SnapshotWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"group", msg.GroupName,
		"ref_id", msg.RefID)

	if err := w.Resync(ctx); err != nil {
		return fmt.Errorf("resync after %s: %w", msg.Kind, err)
	}
	return nil
}

// Resync rebuilds the snapshot document from the store and replaces the
// file on disk.
func (w *SnapshotWorker) Resync(ctx context.Context) error {
	users, err := w.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	recs, err := w.store.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}

	groups := make([]*core.Group, 0, len(recs))
	for _, rec := range recs {
		g, err := rec.Rebuild()
		if err != nil {
			return fmt.Errorf("rebuild group %q: %w", rec.Name, err)
		}
		groups = append(groups, g)
	}

	doc := snapshot.Build(users, groups)
	if err := snapshot.Write(w.path, doc); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot written",
		"path", w.path,
		"users", len(doc.Users),
		"groups", len(doc.Groups))
	return nil
}

// RunPeriodicResync resyncs on the given interval until ctx ends.
func (w *SnapshotWorker) RunPeriodicResync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Starting periodic snapshot resync", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic snapshot resync", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.Resync(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic snapshot resync failed", "error", err)
			}
		}
	}
}
