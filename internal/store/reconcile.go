package store

import (
	"sort"

	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
)

// reconcileSequences repairs per-type sequence numbers: duplicates appear
// after merges where two peers assigned the same number independently, and
// gaps appear after deletes. Entities are reordered by (created_at, id) and
// renumbered so every type holds exactly 1..N; types that already do are
// left untouched.
func (s *Store) reconcileSequences() error {
	changed := false
	for _, t := range entity.Types {
		list, err := s.List(t)
		if err != nil {
			return err
		}
		if sequencesContiguous(list) {
			continue
		}
		sort.Slice(list, func(i, j int) bool {
			a, b := list[i].Meta(), list[j].Meta()
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
		for i, e := range list {
			want := i + 1
			if e.Meta().SequenceNumber == want {
				continue
			}
			em, err := s.entityMap(t, e.Meta().ID)
			if err != nil {
				return err
			}
			if em == nil {
				continue
			}
			if err := em.Set("sequence_number", int64(want)); err != nil {
				return merr.Storage(err)
			}
			changed = true
		}
	}
	if changed {
		return s.commit("reconcile sequence numbers")
	}
	return nil
}

// sequencesContiguous reports whether the sequence numbers are exactly the
// set {1..N}: no duplicates, nothing below one, no gaps.
func sequencesContiguous(list []entity.Entity) bool {
	seen := make(map[int]struct{}, len(list))
	for _, e := range list {
		seq := e.Meta().SequenceNumber
		if seq < 1 || seq > len(list) {
			return false
		}
		if _, dup := seen[seq]; dup {
			return false
		}
		seen[seq] = struct{}{}
	}
	return true
}
