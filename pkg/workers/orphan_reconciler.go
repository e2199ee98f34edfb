package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/dskvich/signvideo/pkg/logger"
	"github.com/dskvich/signvideo/pkg/metrics"
	"github.com/dskvich/signvideo/pkg/storage"
)

type ObjectLister interface {
	List(ctx context.Context, prefix string) ([]storage.StoredObject, error)
	Remove(ctx context.Context, key string) error
}

type RecordChecker interface {
	ExistsByObjectKey(ctx context.Context, objectKey string) (bool, error)
}

type orphanReconciler struct {
	objects  ObjectLister
	records  RecordChecker
	prefix   string
	interval time.Duration
	grace    time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewOrphanReconciler removes uploaded videos that no record points to. Objects
// younger than grace are left alone so in-flight publishes are not raced.
func NewOrphanReconciler(
	objects ObjectLister,
	records RecordChecker,
	prefix string,
	interval, grace time.Duration,
	metrics *metrics.Metrics,
) *orphanReconciler {
	return &orphanReconciler{
		objects:  objects,
		records:  records,
		prefix:   prefix,
		interval: interval,
		grace:    grace,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (o *orphanReconciler) Name() string { return "orphan_reconciler" }

func (o *orphanReconciler) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", o.Name(), "interval", o.interval, "grace", o.grace)
	defer slog.Info("Worker stopped", "name", o.Name())

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		if removed, err := o.Reconcile(ctx); err != nil {
			slog.Error("Reconciling uploads", "removed", removed, logger.Err(err))
		} else if removed > 0 {
			slog.Info("Removed orphaned uploads", "removed", removed)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Reconcile runs one pass and returns how many objects were removed.
func (o *orphanReconciler) Reconcile(ctx context.Context) (int, error) {
	objects, err := o.objects.List(ctx, o.prefix)
	if err != nil {
		return 0, err
	}

	var (
		removed int
		result  error
	)
	cutoff := o.now().Add(-o.grace)
	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			continue
		}

		exists, err := o.records.ExistsByObjectKey(ctx, obj.Key)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if exists {
			continue
		}

		if err := o.objects.Remove(ctx, obj.Key); err != nil {
			result = multierror.Append(result, fmt.Errorf("removing orphan: %w", err))
			continue
		}
		removed++
		o.metrics.OrphansRemoved.Inc()
		slog.Warn("Removed orphaned upload", "key", obj.Key, "last_modified", obj.LastModified)
	}

	return removed, result
}
