package service

import (
	"context"

	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
)

// BatchOp is one operation in a batch.
type BatchOp struct {
	Op         string            `json:"op"` // create, update, delete, relate, unrelate
	Type       string            `json:"type,omitempty"`
	Ref        string            `json:"ref,omitempty"`
	Input      *EntityInput      `json:"input,omitempty"`
	Patch      *EntityPatch      `json:"patch,omitempty"`
	Source     string            `json:"source,omitempty"`
	Target     string            `json:"target,omitempty"`
	Relation   string            `json:"relation_type,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// BatchResult reports the outcome of one executed operation.
type BatchResult struct {
	Index   int         `json:"index"`
	Op      string      `json:"op"`
	Success bool        `json:"success"`
	ID      string      `json:"id,omitempty"`
	Error   *merr.Error `json:"error,omitempty"`
}

// BatchReport summarizes a whole batch run.
type BatchReport struct {
	Results   []BatchResult `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// Batch applies the operations best-effort under one lock: each operation
// succeeds or fails on its own and the report carries a per-operation
// outcome. Only an empty or oversized batch is rejected outright.
func (s *Service) Batch(ctx context.Context, ops []BatchOp) (*BatchReport, error) {
	if len(ops) == 0 {
		return nil, merr.Validation("operations", "batch is empty")
	}
	if len(ops) > s.cfg.MaxBatchSize {
		return nil, merr.Validation("operations",
			"batch of %d exceeds limit %d", len(ops), s.cfg.MaxBatchSize)
	}

	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()

	report := &BatchReport{Results: make([]BatchResult, 0, len(ops))}
	var changes []change
	for i, op := range ops {
		res := BatchResult{Index: i, Op: op.Op}
		id, chs, err := s.applyBatchOp(op)
		if err != nil {
			res.Error = merr.From(err)
			report.Failed++
		} else {
			res.Success = true
			res.ID = id
			report.Succeeded++
			changes = append(changes, chs...)
		}
		report.Results = append(report.Results, res)
	}
	if report.Succeeded > 0 {
		if err := s.commit(ctx, changes...); err != nil {
			s.rollback()
			return nil, err
		}
	}
	return report, nil
}

func validateBatchOp(op BatchOp) error {
	switch op.Op {
	case "create":
		if op.Input == nil {
			return merr.Validation("input", "create needs input")
		}
		if _, err := entity.ParseType(op.Type); err != nil {
			return err
		}
	case "update":
		if op.Ref == "" || op.Patch == nil {
			return merr.Validation("ref", "update needs ref and patch")
		}
	case "delete":
		if op.Ref == "" {
			return merr.Validation("ref", "delete needs ref")
		}
	case "relate", "unrelate":
		if op.Source == "" || op.Target == "" {
			return merr.Validation("source", "%s needs source and target", op.Op)
		}
		if _, err := entity.ParseRelationType(op.Relation); err != nil {
			return err
		}
	default:
		return merr.Validation("op", "unknown operation %q", op.Op)
	}
	return nil
}

func (s *Service) applyBatchOp(op BatchOp) (string, []change, error) {
	if err := validateBatchOp(op); err != nil {
		return "", nil, err
	}
	switch op.Op {
	case "create":
		t, err := entity.ParseType(op.Type)
		if err != nil {
			return "", nil, err
		}
		e := buildEntity(t, *op.Input)
		if err := s.store.Add(e); err != nil {
			return "", nil, err
		}
		id := e.Meta().ID
		return id, []change{{t, id}}, nil
	case "update":
		t, id, err := s.resolve(op.Ref)
		if err != nil {
			return "", nil, err
		}
		if _, err := s.store.Update(t, id, func(e entity.Entity) error {
			applyPatch(e, *op.Patch)
			return nil
		}); err != nil {
			return "", nil, err
		}
		return id, []change{{t, id}}, nil
	case "delete":
		t, id, err := s.resolve(op.Ref)
		if err != nil {
			return "", nil, err
		}
		if err := s.store.Delete(t, id); err != nil {
			return "", nil, err
		}
		return id, []change{{t, id}}, nil
	case "relate", "unrelate":
		srcType, srcID, err := s.resolve(op.Source)
		if err != nil {
			return "", nil, err
		}
		tgtType, tgtID, err := s.resolve(op.Target)
		if err != nil {
			return "", nil, err
		}
		rt, err := entity.ParseRelationType(op.Relation)
		if err != nil {
			return "", nil, err
		}
		if op.Op == "relate" {
			err = s.store.AddRelation(&entity.Relation{
				SourceID: srcID, TargetID: tgtID, Type: rt, Properties: op.Properties,
			})
		} else {
			err = s.store.DeleteRelation(srcID, rt, tgtID)
		}
		if err != nil {
			return "", nil, err
		}
		return srcID, []change{{srcType, srcID}, {tgtType, tgtID}}, nil
	}
	return "", nil, merr.Validation("op", "unknown operation %q", op.Op)
}
