package service

import (
	"context"

	"github.com/medullahq/medulla/internal/cache"
	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/query"
)

// AddRelation resolves both endpoints and records the edge.
func (s *Service) AddRelation(ctx context.Context, sourceRef, targetRef, relType string, properties map[string]string) (*entity.Relation, error) {
	rt, err := entity.ParseRelationType(relType)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()
	srcType, srcID, err := s.resolve(sourceRef)
	if err != nil {
		return nil, err
	}
	tgtType, tgtID, err := s.resolve(targetRef)
	if err != nil {
		return nil, err
	}
	rel := &entity.Relation{
		SourceID:   srcID,
		TargetID:   tgtID,
		Type:       rt,
		Properties: properties,
	}
	if err := s.store.AddRelation(rel); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, change{srcType, srcID}, change{tgtType, tgtID}); err != nil {
		return nil, err
	}
	return rel, nil
}

// DeleteRelation removes one edge by endpoints and type.
func (s *Service) DeleteRelation(ctx context.Context, sourceRef, targetRef, relType string) error {
	rt, err := entity.ParseRelationType(relType)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()
	srcType, srcID, err := s.resolve(sourceRef)
	if err != nil {
		return err
	}
	tgtType, tgtID, err := s.resolve(targetRef)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRelation(srcID, rt, tgtID); err != nil {
		return err
	}
	return s.commit(ctx, change{srcType, srcID}, change{tgtType, tgtID})
}

// ─── Graph reads ───

// GraphRelations returns the edges around a resolved entity.
func (s *Service) GraphRelations(ref, direction string, types []string) ([]*cache.Edge, error) {
	dir, err := cache.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, id, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	normalized := make([]string, 0, len(types))
	for _, t := range types {
		rt, err := entity.ParseRelationType(t)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, string(rt))
	}
	return s.engine.Relations(id, dir, normalized)
}

// GraphPath finds a shortest undirected path between two resolved entities.
func (s *Service) GraphPath(fromRef, toRef string, maxDepth int) (*query.Path, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, fromID, err := s.resolve(fromRef)
	if err != nil {
		return nil, err
	}
	_, toID, err := s.resolve(toRef)
	if err != nil {
		return nil, err
	}
	return s.engine.FindPath(fromID, toID, maxDepth)
}

// GraphOrphans lists entities without relations, optionally of one type.
func (s *Service) GraphOrphans(limit int, typeName string) ([]*cache.EntityRef, error) {
	if typeName != "" {
		t, err := entity.ParseType(typeName)
		if err != nil {
			return nil, err
		}
		typeName = string(t)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Orphans(limit, typeName)
}

// Search runs the query engine under a read lock.
func (s *Service) Search(ctx context.Context, raw, mode string, limit int) ([]*query.Result, error) {
	m, err := query.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Search(ctx, raw, m, limit)
}
