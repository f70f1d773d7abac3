// Package repository is the only code touching the tracks table and the
// blob store behind it. A row exists exactly as long as its stored file.
package repository

import (
	"bitwise74/trackbook/gpx"
	"bitwise74/trackbook/model"
	"bitwise74/trackbook/storage"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("track not found")
	ErrPersistence = errors.New("persistence failure")
)

// DateLayout is the format accepted by Filter dates
const DateLayout = "2006-01-02"

// Filter narrows List. Empty fields don't filter. Dates are whole days in
// UTC, both ends inclusive. Every label must be present on a track.
type Filter struct {
	DateFrom string   `json:"date_from"`
	DateTo   string   `json:"date_to"`
	Labels   []string `json:"labels"`
}

type TrackRepo struct {
	DB    *gorm.DB
	Store storage.Store

	now    func() time.Time
	commit func(tx *gorm.DB) error

	mu        sync.Mutex
	lastStamp time.Time
}

func NewTrackRepo(db *gorm.DB, store storage.Store) *TrackRepo {
	return &TrackRepo{
		DB:     db,
		Store:  store,
		now:    time.Now,
		commit: func(tx *gorm.DB) error { return tx.Commit().Error },
	}
}

// withTx runs fn in a transaction and commits through r.commit
func (r *TrackRepo) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := r.commit(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("commit failed, %w", err)
	}

	return nil
}

// stamp returns a strictly increasing microsecond timestamp so two uploads
// of the same file never share a stored filename
func (r *TrackRepo) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now().Truncate(time.Microsecond)
	if !t.After(r.lastStamp) {
		t = r.lastStamp.Add(time.Microsecond)
	}
	r.lastStamp = t

	return t
}

// SanitizeFilename keeps ASCII letters, digits, dots, underscores and
// dashes. Everything else becomes an underscore, path separators included.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}

	if b.Len() == 0 {
		return "upload.gpx"
	}

	return b.String()
}

// StoredFilename builds the blob key for an upload at t
func StoredFilename(t time.Time, original string) string {
	t = t.UTC()
	return fmt.Sprintf("%s%06d_%s", t.Format("20060102150405"), t.Nanosecond()/1000, SanitizeFilename(original))
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.PlaceholderName
	}

	return name
}

func (r *TrackRepo) removeBlob(ctx context.Context, key string) error {
	err := r.Store.Delete(ctx, key)
	if err != nil {
		zap.L().Warn("Failed to remove stored file", zap.String("key", key), zap.Error(err))
	}

	return err
}

// Create stores raw and inserts the row. When the insert fails the stored
// file is removed again so no orphan is left behind.
func (r *TrackRepo) Create(ctx context.Context, s *gpx.Summary, raw []byte) (int64, error) {
	key := StoredFilename(r.stamp(), s.OriginalFilename)

	if err := r.Store.Put(ctx, key, bytes.NewReader(raw), int64(len(raw))); err != nil {
		return 0, fmt.Errorf("%w: failed to store file, %w", ErrPersistence, err)
	}

	var trackDate *time.Time
	if s.TrackDate != nil {
		t := s.TrackDate.UTC()
		trackDate = &t
	}

	t := model.Track{
		Name:             cleanName(s.Name),
		OriginalFilename: s.OriginalFilename,
		StoredFilename:   key,
		DistanceKm:       s.DistanceKm,
		UploadDate:       r.now().UTC(),
		TrackDate:        trackDate,
		Labels:           model.Labels(model.NormalizeLabels(s.Labels)),
		TotalAscent:      s.TotalAscent,
		TotalDescent:     s.TotalDescent,
	}

	err := r.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&t).Error
	})
	if err != nil {
		// The request context may be what failed, cleanup must still run
		r.removeBlob(context.WithoutCancel(ctx), key)
		return 0, fmt.Errorf("%w: failed to save track, %w", ErrPersistence, err)
	}

	zap.L().Debug("Track created", zap.Int64("id", t.ID), zap.String("key", key))
	return t.ID, nil
}

func (r *TrackRepo) Get(ctx context.Context, id int64) (*model.Track, error) {
	var t model.Track

	err := r.DB.WithContext(ctx).First(&t, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}

		return nil, fmt.Errorf("%w: failed to fetch track, %w", ErrPersistence, err)
	}

	return &t, nil
}

// GetMany returns the tracks that exist among ids in list order. Missing
// ids are skipped.
func (r *TrackRepo) GetMany(ctx context.Context, ids []int64) ([]model.Track, error) {
	var out []model.Track
	if len(ids) == 0 {
		return out, nil
	}

	err := sorted(r.DB.WithContext(ctx).Where("id IN ?", ids)).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch tracks, %w", ErrPersistence, err)
	}

	return out, nil
}

func sorted(q *gorm.DB) *gorm.DB {
	return q.
		Order("track_date IS NULL").
		Order("track_date DESC").
		Order("id DESC")
}

// ParseDateRange parses both filter dates. to is returned as the exclusive
// upper bound, the start of the following day.
func ParseDateRange(f Filter) (from, to *time.Time, err error) {
	if s := strings.TrimSpace(f.DateFrom); s != "" {
		t, err := time.ParseInLocation(DateLayout, s, time.UTC)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid date_from %q, %w", s, err)
		}
		from = &t
	}

	if s := strings.TrimSpace(f.DateTo); s != "" {
		t, err := time.ParseInLocation(DateLayout, s, time.UTC)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid date_to %q, %w", s, err)
		}
		t = t.AddDate(0, 0, 1)
		to = &t
	}

	return from, to, nil
}

// List returns tracks newest first by track date, undated tracks last and
// ties broken by id descending. A filter with an unparseable date is
// ignored entirely.
//
// Labels are matched as a substring of the stored JSON text, so LIKE
// wildcards in a requested label act as wildcards.
func (r *TrackRepo) List(ctx context.Context, f Filter) ([]model.Track, error) {
	q := r.DB.WithContext(ctx).Model(&model.Track{})

	from, to, err := ParseDateRange(f)
	if err != nil {
		zap.L().Warn("Ignoring filter with invalid date", zap.Error(err))
	} else {
		if from != nil {
			q = q.Where("track_date >= ?", *from)
		}

		if to != nil {
			q = q.Where("track_date < ?", *to)
		}

		for _, l := range f.Labels {
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}

			q = q.Where("labels LIKE ?", "%"+model.EncodeLabel(l)+"%")
		}
	}

	var out []model.Track
	if err := sorted(q).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list tracks, %w", ErrPersistence, err)
	}

	return out, nil
}

// Update sets name and labels. It reports false when the track doesn't exist.
func (r *TrackRepo) Update(ctx context.Context, id int64, name string, labels []string) (bool, error) {
	found := true

	err := r.withTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Track{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			found = false
			return nil
		}

		return tx.
			Model(&model.Track{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"name":   cleanName(name),
				"labels": model.Labels(labels),
			}).
			Error
	})
	if err != nil {
		return false, fmt.Errorf("%w: failed to update track, %w", ErrPersistence, err)
	}

	return found, nil
}

// DeleteOne removes the row and, once that is committed, the stored file.
// A failure to remove the file is only logged. The deleted track's name is
// returned.
func (r *TrackRepo) DeleteOne(ctx context.Context, id int64) (string, error) {
	var t model.Track

	err := r.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Select("id", "name", "stored_filename").First(&t, id).Error; err != nil {
			return err
		}

		return tx.Delete(&model.Track{}, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: id %d", ErrNotFound, id)
		}

		return "", fmt.Errorf("%w: failed to delete track, %w", ErrPersistence, err)
	}

	r.removeBlob(context.WithoutCancel(ctx), t.StoredFilename)
	return t.Name, nil
}

// DeleteMany stages every row deletion in one transaction and removes
// stored files only after it committed. It returns how many rows were
// deleted and one message per problem. When the commit fails nothing is
// deleted and no file is touched.
func (r *TrackRepo) DeleteMany(ctx context.Context, ids []int64) (int, []string) {
	errs := []string{}
	keys := []string{}

	seen := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(seen, id) {
			seen = append(seen, id)
		}
	}

	err := r.withTx(ctx, func(tx *gorm.DB) error {
		for _, id := range seen {
			var t model.Track

			err := tx.Select("id", "stored_filename").First(&t, id).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					errs = append(errs, fmt.Sprintf("track ID %d not found", id))
				} else {
					errs = append(errs, fmt.Sprintf("track ID %d: %v", id, err))
				}
				continue
			}

			if err := tx.Delete(&model.Track{}, id).Error; err != nil {
				errs = append(errs, fmt.Sprintf("track ID %d: %v", id, err))
				continue
			}

			keys = append(keys, t.StoredFilename)
		}

		return nil
	})
	if err != nil {
		zap.L().Error("Bulk delete rolled back", zap.Int64s("ids", seen), zap.Error(err))
		return 0, append(errs, err.Error(), "no tracks deleted")
	}

	cleanupCtx := context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := r.removeBlob(cleanupCtx, key); err != nil {
			errs = append(errs, fmt.Sprintf("failed to remove file %s: %v", key, err))
		}
	}

	return len(keys), errs
}

// ListUniqueLabels returns every label in use, sorted. Rows with malformed
// label JSON are skipped.
func (r *TrackRepo) ListUniqueLabels(ctx context.Context) ([]string, error) {
	var raws []sql.NullString

	err := r.DB.WithContext(ctx).
		Model(&model.Track{}).
		Distinct().
		Pluck("labels", &raws).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read labels, %w", ErrPersistence, err)
	}

	var all []string
	for _, raw := range raws {
		if !raw.Valid {
			continue
		}

		labels, err := model.ParseLabels(raw.String)
		if err != nil {
			zap.L().Warn("Skipping malformed labels", zap.String("raw", raw.String), zap.Error(err))
			continue
		}

		all = append(all, labels...)
	}

	return model.NormalizeLabels(all), nil
}

// FilePathFor returns where the file of a track is stored
func (r *TrackRepo) FilePathFor(ctx context.Context, id int64) (string, error) {
	var key string

	err := r.DB.WithContext(ctx).
		Model(&model.Track{}).
		Where("id = ?", id).
		Select("stored_filename").
		First(&key).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: id %d", ErrNotFound, id)
		}

		return "", fmt.Errorf("%w: failed to look up file, %w", ErrPersistence, err)
	}

	return r.Store.Location(key), nil
}

// Open returns the track and a reader over its stored file
func (r *TrackRepo) Open(ctx context.Context, id int64) (*model.Track, io.ReadCloser, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := r.Store.Get(ctx, t.StoredFilename)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to open stored file, %w", ErrPersistence, err)
	}

	return t, rc, nil
}

// ReadPoints re-parses the stored file of t
func (r *TrackRepo) ReadPoints(ctx context.Context, t *model.Track) ([]gpx.TrackPoint, error) {
	raw, err := storage.ReadAll(ctx, r.Store, t.StoredFilename)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read stored file, %w", ErrPersistence, err)
	}

	return gpx.Points(raw)
}

// StoredFilenames lists the blob keys of every track
func (r *TrackRepo) StoredFilenames(ctx context.Context) ([]string, error) {
	var keys []string

	err := r.DB.WithContext(ctx).
		Model(&model.Track{}).
		Pluck("stored_filename", &keys).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list stored files, %w", ErrPersistence, err)
	}

	return keys, nil
}
