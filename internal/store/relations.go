package store

import (
	"sort"
	"time"

	"github.com/automerge/automerge-go"

	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
)

// AddRelation validates and upserts a relation. Both endpoints must exist;
// adding the same source:type:target twice replaces the properties.
func (s *Store) AddRelation(r *entity.Relation) error {
	if err := r.Validate(); err != nil {
		return err
	}
	srcType, err := s.TypeOf(r.SourceID)
	if err != nil {
		return merr.RelationTargetNotFound(r.SourceID)
	}
	tgtType, err := s.TypeOf(r.TargetID)
	if err != nil {
		return merr.RelationTargetNotFound(r.TargetID)
	}
	r.SourceType = srcType
	r.TargetType = tgtType
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if err := s.relationsMap().Set(r.CompositeKey(), relationFields(r)); err != nil {
		return merr.Storage(err)
	}
	return s.commit("relate %s -%s-> %s", shortID(r.SourceID), r.Type, shortID(r.TargetID))
}

// DeleteRelation removes one edge by its composite identity.
func (s *Store) DeleteRelation(sourceID string, relType entity.RelationType, targetID string) error {
	key := (&entity.Relation{SourceID: sourceID, Type: relType, TargetID: targetID}).CompositeKey()
	rm, err := s.relationMap(key)
	if err != nil {
		return err
	}
	if rm == nil {
		return merr.EntityNotFound(key)
	}
	if err := s.relationsMap().Delete(key); err != nil {
		return merr.Storage(err)
	}
	return s.commit("unrelate %s", key)
}

// ListRelations returns every relation, ordered by composite key.
func (s *Store) ListRelations() ([]*entity.Relation, error) {
	rels := s.relationsMap()
	keys, err := rels.Keys()
	if err != nil {
		return nil, merr.Storage(err)
	}
	sort.Strings(keys)
	out := make([]*entity.Relation, 0, len(keys))
	for _, key := range keys {
		rm, err := s.relationMap(key)
		if err != nil {
			return nil, err
		}
		if rm == nil {
			continue
		}
		r, err := decodeRelation(rm)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// RelationsFrom returns the outgoing edges of an entity.
func (s *Store) RelationsFrom(id string) ([]*entity.Relation, error) {
	return s.filterRelations(func(r *entity.Relation) bool { return r.SourceID == id })
}

// RelationsTo returns the incoming edges of an entity.
func (s *Store) RelationsTo(id string) ([]*entity.Relation, error) {
	return s.filterRelations(func(r *entity.Relation) bool { return r.TargetID == id })
}

func (s *Store) filterRelations(keep func(*entity.Relation) bool) ([]*entity.Relation, error) {
	all, err := s.ListRelations()
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) relationMap(key string) (*automerge.Map, error) {
	v, err := s.relationsMap().Get(key)
	if err != nil {
		return nil, merr.Storage(err)
	}
	if v.Kind() != automerge.KindMap {
		return nil, nil
	}
	return v.Map(), nil
}

