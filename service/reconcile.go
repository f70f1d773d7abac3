package service

import (
	"bitwise74/trackbook/repository"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reconciler finds stored files without a track row and rows without a
// stored file. Orphan files older than Grace are removed unless DryRun is
// set, younger ones may belong to an upload still in progress. Rows with a
// missing file are only reported.
type Reconciler struct {
	Repo   *repository.TrackRepo
	Grace  time.Duration
	DryRun bool

	now func() time.Time
}

type ReconcileReport struct {
	OrphanFiles  []string `json:"orphan_files"`
	Removed      []string `json:"removed"`
	MissingFiles []string `json:"missing_files"`
}

func NewReconciler(r *repository.TrackRepo, grace time.Duration) *Reconciler {
	return &Reconciler{Repo: r, Grace: grace, now: time.Now}
}

func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	keys, err := r.Repo.StoredFilenames(ctx)
	if err != nil {
		return nil, err
	}

	objects, err := r.Repo.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored files, %w", err)
	}

	report := &ReconcileReport{
		OrphanFiles:  []string{},
		Removed:      []string{},
		MissingFiles: []string{},
	}

	present := make([]string, 0, len(objects))
	for _, o := range objects {
		present = append(present, o.Key)

		if slices.Contains(keys, o.Key) {
			continue
		}

		report.OrphanFiles = append(report.OrphanFiles, o.Key)
		if r.now().Sub(o.ModTime) < r.Grace {
			continue
		}

		if r.DryRun {
			zap.L().Info("Would remove orphan file", zap.String("key", o.Key))
			continue
		}

		if err := r.Repo.Store.Delete(ctx, o.Key); err != nil {
			zap.L().Error("Failed to remove orphan file", zap.String("key", o.Key), zap.Error(err))
			continue
		}

		report.Removed = append(report.Removed, o.Key)
		zap.L().Info("Removed orphan file", zap.String("key", o.Key))
	}

	for _, k := range keys {
		if !slices.Contains(present, k) {
			report.MissingFiles = append(report.MissingFiles, k)
			zap.L().Warn("Track has no stored file", zap.String("key", k))
		}
	}

	return report, nil
}

// Schedule runs the reconciler on a cron spec until the returned cron is
// stopped
func (r *Reconciler) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		report, err := r.Run(ctx)
		if err != nil {
			zap.L().Error("Reconciliation failed", zap.Error(err))
			return
		}

		zap.L().Debug("Reconciliation finished",
			zap.Int("orphans", len(report.OrphanFiles)),
			zap.Int("removed", len(report.Removed)),
			zap.Int("missing", len(report.MissingFiles)),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q, %w", spec, err)
	}

	c.Start()
	zap.L().Debug("Reconciliation attached", zap.String("schedule", spec))

	return c, nil
}
