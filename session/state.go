// Package session keeps per-browser UI state: the current track selection
// and the active list filter
package session

import (
	"bitwise74/trackbook/repository"
	"context"
	"errors"
	"slices"

	"github.com/spf13/viper"
)

var ErrInvalidID = errors.New("invalid session id")

type State struct {
	SelectedIDs []int64           `json:"selected_ids"`
	Filter      repository.Filter `json:"filter"`
}

// Store is implemented by every session backend. Get returns an empty
// state for unknown ids.
type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, id string, s *State) error
	Delete(ctx context.Context, id string) error
}

// New builds the store selected by session.store
func New(ctx context.Context) (Store, error) {
	ttl := viper.GetDuration("session.ttl")

	switch viper.GetString("session.store") {
	case "redis":
		return NewRedis(ctx, ttl)
	default:
		return NewMemory(ttl), nil
	}
}

// Select replaces the selection
func (s *State) Select(ids ...int64) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	s.SelectedIDs = out
}

// Deselect removes id from the selection
func (s *State) Deselect(id int64) {
	s.SelectedIDs = slices.DeleteFunc(s.SelectedIDs, func(v int64) bool { return v == id })
}

// PruneSelection drops selected ids that aren't in visible. It reports
// whether anything changed.
func (s *State) PruneSelection(visible []int64) bool {
	before := len(s.SelectedIDs)
	s.SelectedIDs = slices.DeleteFunc(s.SelectedIDs, func(v int64) bool {
		return !slices.Contains(visible, v)
	})

	return len(s.SelectedIDs) != before
}

// PruneLabels drops filter labels that no track carries anymore. It
// reports whether anything changed.
func (s *State) PruneLabels(vocabulary []string) bool {
	before := len(s.Filter.Labels)
	s.Filter.Labels = slices.DeleteFunc(s.Filter.Labels, func(l string) bool {
		return !slices.Contains(vocabulary, l)
	})

	return len(s.Filter.Labels) != before
}

func emptyState() *State {
	return &State{SelectedIDs: []int64{}, Filter: repository.Filter{Labels: []string{}}}
}
