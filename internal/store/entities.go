package store

import (
	"reflect"
	"sort"
	"time"

	"github.com/automerge/automerge-go"
	"github.com/google/uuid"

	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
)

// Add validates e, assigns identity (uuid, per-type sequence, timestamps)
// and stores it. Mutates e in place with the assigned fields.
func (s *Store) Add(e entity.Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	b := e.Meta()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	seq, err := s.nextSequence(e.EntityType())
	if err != nil {
		return err
	}
	b.SequenceNumber = seq
	if err := s.collection(e.EntityType()).Set(b.ID, entityFields(e)); err != nil {
		return merr.Storage(err)
	}
	return s.commit("add %s %s", e.EntityType(), b.ShortID())
}

// Get returns the entity with the given full id, or EntityNotFound.
func (s *Store) Get(t entity.Type, id string) (entity.Entity, error) {
	em, err := s.entityMap(t, id)
	if err != nil {
		return nil, err
	}
	if em == nil {
		return nil, merr.EntityNotFound(id)
	}
	return decodeEntity(t, em)
}

// List returns all entities of one type, ordered by sequence number.
func (s *Store) List(t entity.Type) ([]entity.Entity, error) {
	col := s.collection(t)
	keys, err := col.Keys()
	if err != nil {
		return nil, merr.Storage(err)
	}
	out := make([]entity.Entity, 0, len(keys))
	for _, id := range keys {
		em, err := s.entityMap(t, id)
		if err != nil {
			return nil, err
		}
		if em == nil {
			continue
		}
		e, err := decodeEntity(t, em)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Meta().SequenceNumber < out[j].Meta().SequenceNumber
	})
	return out, nil
}

// ListAll returns every entity across all types.
func (s *Store) ListAll() ([]entity.Entity, error) {
	var out []entity.Entity
	for _, t := range entity.Types {
		list, err := s.List(t)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return out, nil
}

// Update applies mutate to the stored entity, re-validates, bumps UpdatedAt
// and writes only the fields that changed. Identity fields are immutable.
func (s *Store) Update(t entity.Type, id string, mutate func(entity.Entity) error) (entity.Entity, error) {
	em, err := s.entityMap(t, id)
	if err != nil {
		return nil, err
	}
	if em == nil {
		return nil, merr.EntityNotFound(id)
	}
	e, err := decodeEntity(t, em)
	if err != nil {
		return nil, err
	}
	before := entityFields(e)
	b := e.Meta()
	frozenID, frozenSeq, frozenCreated := b.ID, b.SequenceNumber, b.CreatedAt
	if err := mutate(e); err != nil {
		return nil, err
	}
	b.ID, b.SequenceNumber, b.CreatedAt = frozenID, frozenSeq, frozenCreated
	if err := e.Validate(); err != nil {
		return nil, err
	}
	b.UpdatedAt = time.Now().UTC()
	if err := writeFieldDiff(em, before, entityFields(e)); err != nil {
		return nil, merr.Storage(err)
	}
	if err := s.commit("update %s %s", t, b.ShortID()); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes only the entity itself. Relations that reference it stay in
// the document so they survive merges with branches that still hold the
// entity; readers filter the dangling edges out.
func (s *Store) Delete(t entity.Type, id string) error {
	em, err := s.entityMap(t, id)
	if err != nil {
		return err
	}
	if em == nil {
		return merr.EntityNotFound(id)
	}
	if err := s.collection(t).Delete(id); err != nil {
		return merr.Storage(err)
	}
	return s.commit("delete %s %s", t, shortID(id))
}

// TypeOf reports which collection holds id.
func (s *Store) TypeOf(id string) (entity.Type, error) {
	for _, t := range entity.Types {
		em, err := s.entityMap(t, id)
		if err != nil {
			return "", err
		}
		if em != nil {
			return t, nil
		}
	}
	return "", merr.EntityNotFound(id)
}

// Supersede marks oldID superseded by newID and records the supersedes
// relation, as one commit.
func (s *Store) Supersede(oldID, newID string) error {
	oldMap, err := s.entityMap(entity.TypeDecision, oldID)
	if err != nil {
		return err
	}
	if oldMap == nil {
		return merr.EntityNotFound(oldID)
	}
	newMap, err := s.entityMap(entity.TypeDecision, newID)
	if err != nil {
		return err
	}
	if newMap == nil {
		return merr.EntityNotFound(newID)
	}
	now := time.Now().UTC().Format(timeLayout)
	if err := oldMap.Set("status", string(entity.DecisionSuperseded)); err != nil {
		return merr.Storage(err)
	}
	if err := oldMap.Set("superseded_by", newID); err != nil {
		return merr.Storage(err)
	}
	if err := oldMap.Set("updated_at", now); err != nil {
		return merr.Storage(err)
	}
	rel := &entity.Relation{
		SourceID:   newID,
		TargetID:   oldID,
		Type:       entity.RelSupersedes,
		SourceType: entity.TypeDecision,
		TargetType: entity.TypeDecision,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.relationsMap().Set(rel.CompositeKey(), relationFields(rel)); err != nil {
		return merr.Storage(err)
	}
	return s.commit("supersede decision %s by %s", shortID(oldID), shortID(newID))
}

// ─── Internals ───

func (s *Store) entityMap(t entity.Type, id string) (*automerge.Map, error) {
	v, err := s.collection(t).Get(id)
	if err != nil {
		return nil, merr.Storage(err)
	}
	if v.Kind() != automerge.KindMap {
		return nil, nil
	}
	return v.Map(), nil
}

func (s *Store) nextSequence(t entity.Type) (int, error) {
	list, err := s.List(t)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, e := range list {
		if seq := e.Meta().SequenceNumber; seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

// writeFieldDiff applies field-level changes so concurrent edits of
// different fields merge cleanly.
func writeFieldDiff(em *automerge.Map, before, after map[string]any) error {
	for key, val := range after {
		if reflect.DeepEqual(before[key], val) {
			continue
		}
		if err := em.Set(key, val); err != nil {
			return err
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			if err := em.Delete(key); err != nil {
				return err
			}
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) <= 7 {
		return id
	}
	return id[:7]
}
