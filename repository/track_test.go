package repository

import (
	"bitwise74/trackbook/db"
	"bitwise74/trackbook/gpx"
	"bitwise74/trackbook/model"
	"bitwise74/trackbook/storage"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var ctx = context.Background()

func newRepo(t *testing.T) (*TrackRepo, *storage.Local) {
	t.Helper()
	dir := t.TempDir()

	d, err := db.Open("sqlite", filepath.Join(dir, "tracks.db"))
	require.NoError(t, err)

	store, err := storage.NewLocal(filepath.Join(dir, "files"))
	require.NoError(t, err)

	return NewTrackRepo(d, store), store
}

func day(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

func summary(name string, date *time.Time, labels ...string) *gpx.Summary {
	dist := 12.5
	return &gpx.Summary{
		Name:             name,
		OriginalFilename: strings.ToLower(name) + ".gpx",
		TrackDate:        date,
		DistanceKm:       &dist,
		Labels:           labels,
	}
}

func mustCreate(t *testing.T, r *TrackRepo, s *gpx.Summary) int64 {
	t.Helper()

	id, err := r.Create(ctx, s, []byte("<gpx>"+s.Name+"</gpx>"))
	require.NoError(t, err)
	return id
}

func ids(tracks []model.Track) []int64 {
	out := make([]int64, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}

func countFiles(t *testing.T, s *storage.Local) int {
	t.Helper()

	list, err := s.List(ctx)
	require.NoError(t, err)
	return len(list)
}

func TestTrackRepo_CreateGetRoundTrip(t *testing.T) {
	r, store := newRepo(t)

	ascent, descent := 310.0, 290.5
	s := summary("Ridge", day("2024-05-02T08:00:00+02:00"), "b", " a ", "a")
	s.OriginalFilename = "Ridge Walk (1).gpx"
	s.TotalAscent = &ascent
	s.TotalDescent = &descent

	raw := []byte("<gpx>ridge</gpx>")
	id, err := r.Create(ctx, s, raw)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ridge", got.Name)
	assert.Equal(t, "Ridge Walk (1).gpx", got.OriginalFilename)
	assert.True(t, strings.HasSuffix(got.StoredFilename, "_Ridge_Walk__1_.gpx"), got.StoredFilename)
	assert.Equal(t, model.Labels{"a", "b"}, got.Labels)
	require.NotNil(t, got.TrackDate)
	assert.True(t, got.TrackDate.Equal(time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 12.5, *got.DistanceKm, 1e-9)
	assert.InDelta(t, 310, *got.TotalAscent, 1e-9)
	assert.InDelta(t, 290.5, *got.TotalDescent, 1e-9)
	assert.False(t, got.UploadDate.IsZero())

	path, err := r.FilePathFor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.Location(got.StoredFilename), path)

	track, rc, err := r.Open(ctx, id)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, raw, body)
	assert.Equal(t, id, track.ID)
}

func TestTrackRepo_CreatePlaceholderName(t *testing.T) {
	r, _ := newRepo(t)

	id := mustCreate(t, r, summary("   ", nil))
	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.PlaceholderName, got.Name)
}

func TestTrackRepo_CreateFailureRemovesFile(t *testing.T) {
	r, store := newRepo(t)
	r.commit = func(*gorm.DB) error { return errors.New("disk full") }

	_, err := r.Create(ctx, summary("Lost", nil), []byte("<gpx/>"))
	assert.ErrorIs(t, err, ErrPersistence)

	assert.Zero(t, countFiles(t, store))

	r.commit = func(tx *gorm.DB) error { return tx.Commit().Error }
	list, err := r.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTrackRepo_StoredFilenamesAreUnique(t *testing.T) {
	r, store := newRepo(t)

	fixed := time.Date(2024, 1, 2, 15, 4, 5, 123456789, time.UTC)
	r.now = func() time.Time { return fixed }

	a := mustCreate(t, r, summary("Same", nil))
	b := mustCreate(t, r, summary("Same", nil))

	ta, err := r.Get(ctx, a)
	require.NoError(t, err)
	tb, err := r.Get(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, "20240102150405123456_same.gpx", ta.StoredFilename)
	assert.Equal(t, "20240102150405123457_same.gpx", tb.StoredFilename)
	assert.Equal(t, 2, countFiles(t, store))
}

func TestTrackRepo_GetMissing(t *testing.T) {
	r, _ := newRepo(t)

	_, err := r.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FilePathFor(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrackRepo_Update(t *testing.T) {
	r, _ := newRepo(t)
	id := mustCreate(t, r, summary("Before", nil, "x"))

	ok, err := r.Update(ctx, id, "  After  ", []string{" b", "a", "", "a", "b "})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	assert.Equal(t, model.Labels{"a", "b"}, got.Labels)

	ok, err = r.Update(ctx, id, "", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.PlaceholderName, got.Name)
	assert.Empty(t, got.Labels)

	ok, err = r.Update(ctx, id+100, "ghost", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackRepo_DeleteOne(t *testing.T) {
	r, store := newRepo(t)
	id := mustCreate(t, r, summary("Gone", nil))
	keep := mustCreate(t, r, summary("Kept", nil))

	name, err := r.DeleteOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Gone", name)

	_, err = r.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, countFiles(t, store))

	_, err = r.FilePathFor(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.DeleteOne(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Get(ctx, keep)
	assert.NoError(t, err)
}

func TestTrackRepo_DeleteOneWithoutStoredFile(t *testing.T) {
	r, store := newRepo(t)
	id := mustCreate(t, r, summary("Orphaned", nil))

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, got.StoredFilename))
	require.Equal(t, 0, countFiles(t, store))

	name, err := r.DeleteOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Orphaned", name)

	_, err = r.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FilePathFor(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrackRepo_DeleteOneCommitFailureKeepsFile(t *testing.T) {
	r, store := newRepo(t)
	id := mustCreate(t, r, summary("Stays", nil))

	r.commit = func(*gorm.DB) error { return errors.New("locked") }

	_, err := r.DeleteOne(ctx, id)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 1, countFiles(t, store))

	_, err = r.Get(ctx, id)
	assert.NoError(t, err)
}

func TestTrackRepo_ListSortOrder(t *testing.T) {
	r, _ := newRepo(t)

	undatedOld := mustCreate(t, r, summary("U1", nil))
	older := mustCreate(t, r, summary("Older", day("2023-03-01T10:00:00Z")))
	newer := mustCreate(t, r, summary("Newer", day("2024-06-01T10:00:00Z")))
	sameA := mustCreate(t, r, summary("SameA", day("2023-09-09T09:00:00Z")))
	sameB := mustCreate(t, r, summary("SameB", day("2023-09-09T09:00:00Z")))
	undatedNew := mustCreate(t, r, summary("U2", nil))

	list, err := r.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{newer, sameB, sameA, older, undatedNew, undatedOld}, ids(list))
}

func TestTrackRepo_ListDateFilter(t *testing.T) {
	r, _ := newRepo(t)

	early := mustCreate(t, r, summary("Early", day("2024-05-01T00:00:00Z")))
	late := mustCreate(t, r, summary("Late", day("2024-05-01T23:59:00Z")))
	next := mustCreate(t, r, summary("Next", day("2024-05-02T00:00:00Z")))
	undated := mustCreate(t, r, summary("Undated", nil))

	list, err := r.List(ctx, Filter{DateFrom: "2024-05-01", DateTo: "2024-05-01"})
	require.NoError(t, err)
	assert.Equal(t, []int64{late, early}, ids(list))

	list, err = r.List(ctx, Filter{DateFrom: "2024-05-02"})
	require.NoError(t, err)
	assert.Equal(t, []int64{next}, ids(list))

	list, err = r.List(ctx, Filter{DateTo: "2024-04-30"})
	require.NoError(t, err)
	assert.Empty(t, list)

	// An unparseable date drops every filter
	list, err = r.List(ctx, Filter{DateFrom: "05/01/2024", Labels: []string{"nope"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{next, late, early, undated}, ids(list))
}

func TestTrackRepo_ListLabelFilter(t *testing.T) {
	r, _ := newRepo(t)

	alps := mustCreate(t, r, summary("A", day("2024-01-03T00:00:00Z"), "Alps", "hike"))
	shire := mustCreate(t, r, summary("B", day("2024-01-02T00:00:00Z"), "Alpshire"))
	hike := mustCreate(t, r, summary("C", day("2024-01-01T00:00:00Z"), "hike"))

	list, err := r.List(ctx, Filter{Labels: []string{"Alps"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{alps}, ids(list))

	list, err = r.List(ctx, Filter{Labels: []string{"hike"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{alps, hike}, ids(list))

	list, err = r.List(ctx, Filter{Labels: []string{"hike", "Alps", " "}})
	require.NoError(t, err)
	assert.Equal(t, []int64{alps}, ids(list))

	list, err = r.List(ctx, Filter{Labels: []string{"Alpshire", "hike"}})
	require.NoError(t, err)
	assert.Empty(t, list)

	// Matching is a LIKE on the stored JSON, so wildcards still apply
	list, err = r.List(ctx, Filter{Labels: []string{"Alp_"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{alps}, ids(list))

	list, err = r.List(ctx, Filter{Labels: []string{"Alp%"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{alps, shire}, ids(list))
}

func TestTrackRepo_DeleteManyAllSucceed(t *testing.T) {
	r, store := newRepo(t)
	a := mustCreate(t, r, summary("A", nil))
	b := mustCreate(t, r, summary("B", nil))
	c := mustCreate(t, r, summary("C", nil))

	n, errs := r.DeleteMany(ctx, []int64{a, b, a})
	assert.Equal(t, 2, n)
	assert.Empty(t, errs)

	list, err := r.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{c}, ids(list))
	assert.Equal(t, 1, countFiles(t, store))
}

func TestTrackRepo_DeleteManyMissingIDs(t *testing.T) {
	r, store := newRepo(t)
	a := mustCreate(t, r, summary("A", nil))

	n, errs := r.DeleteMany(ctx, []int64{a, 999})
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"track ID 999 not found"}, errs)
	assert.Zero(t, countFiles(t, store))
}

func TestTrackRepo_DeleteManyCommitFailure(t *testing.T) {
	r, store := newRepo(t)
	a := mustCreate(t, r, summary("A", nil))
	b := mustCreate(t, r, summary("B", nil))

	r.commit = func(*gorm.DB) error { return errors.New("database is locked") }

	n, errs := r.DeleteMany(ctx, []int64{a, b})
	assert.Zero(t, n)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "commit failed")
	assert.Equal(t, "no tracks deleted", errs[1])

	// Rows and files are untouched
	assert.Equal(t, 2, countFiles(t, store))

	r.commit = func(tx *gorm.DB) error { return tx.Commit().Error }
	list, err := r.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestTrackRepo_ListUniqueLabels(t *testing.T) {
	r, _ := newRepo(t)
	mustCreate(t, r, summary("A", nil, "hike", "Alps"))
	mustCreate(t, r, summary("B", nil, "bike", "hike"))
	mustCreate(t, r, summary("C", nil))
	broken := mustCreate(t, r, summary("D", nil, "lost"))

	require.NoError(t, r.DB.Exec("UPDATE tracks SET labels = ? WHERE id = ?", "{not json", broken).Error)

	labels, err := r.ListUniqueLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alps", "bike", "hike"}, labels)
}

func TestTrackRepo_GetManyAndStoredFilenames(t *testing.T) {
	r, _ := newRepo(t)
	a := mustCreate(t, r, summary("A", day("2022-01-01T00:00:00Z")))
	b := mustCreate(t, r, summary("B", day("2023-01-01T00:00:00Z")))

	got, err := r.GetMany(ctx, []int64{a, b, 77})
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a}, ids(got))

	keys, err := r.StoredFilenames(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_track_2024.gpx", SanitizeFilename("my track 2024.gpx"))
	assert.Equal(t, "tour_.gpx", SanitizeFilename("tour€.gpx"))
	assert.Equal(t, "a_b.gpx", SanitizeFilename("a/b.gpx"))
	assert.Equal(t, ".._.._evil.gpx", SanitizeFilename("../../evil.gpx"))
	assert.Equal(t, "C__tracks_x.gpx", SanitizeFilename(`C:\tracks\x.gpx`))
	assert.Equal(t, "upload.gpx", SanitizeFilename(""))
}

func TestParseDateRange(t *testing.T) {
	from, to, err := ParseDateRange(Filter{DateFrom: "2024-02-28", DateTo: "2024-02-29"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *to)

	_, _, err = ParseDateRange(Filter{DateTo: "tomorrow"})
	assert.Error(t, err)
}
