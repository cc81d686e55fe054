package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/medullahq/medulla/internal/cache"
	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
)

// EntityInput carries the writable fields for create operations. Fields not
// applicable to the entity type are rejected only when they would be
// ambiguous; unknown-to-type fields are simply ignored.
type EntityInput struct {
	Title        string            `json:"title"`
	Content      string            `json:"content,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	CreatedBy    string            `json:"created_by,omitempty"`
	Status       string            `json:"status,omitempty"`
	Priority     string            `json:"priority,omitempty"`
	DueDate      string            `json:"due_date,omitempty"`
	Assignee     string            `json:"assignee,omitempty"`
	Context      string            `json:"context,omitempty"`
	Consequences []string          `json:"consequences,omitempty"`
	NoteType     string            `json:"note_type,omitempty"`
	Template     string            `json:"template,omitempty"`
	OutputSchema string            `json:"output_schema,omitempty"`
	Path         string            `json:"path,omitempty"`
	URL          string            `json:"url,omitempty"`
	LinkType     string            `json:"link_type,omitempty"`
}

// EntityPatch carries update fields; nil means "leave unchanged", a pointer
// to the zero value clears the field. AddTags and RemoveTags revise the tag
// list incrementally; Tags replaces it wholesale and applies first when both
// are given.
type EntityPatch struct {
	Title        *string   `json:"title,omitempty"`
	Content      *string   `json:"content,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	AddTags      []string  `json:"add_tags,omitempty"`
	RemoveTags   []string  `json:"remove_tags,omitempty"`
	Status       *string   `json:"status,omitempty"`
	Priority     *string   `json:"priority,omitempty"`
	DueDate      *string   `json:"due_date,omitempty"`
	Assignee     *string   `json:"assignee,omitempty"`
	Context      *string   `json:"context,omitempty"`
	Consequences *[]string `json:"consequences,omitempty"`
	NoteType     *string   `json:"note_type,omitempty"`
	Template     *string   `json:"template,omitempty"`
	OutputSchema *string   `json:"output_schema,omitempty"`
	Path         *string   `json:"path,omitempty"`
	URL          *string   `json:"url,omitempty"`
	LinkType     *string   `json:"link_type,omitempty"`
}

func buildEntity(t entity.Type, in EntityInput) entity.Entity {
	base := entity.Base{
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		CreatedBy: in.CreatedBy,
	}
	switch t {
	case entity.TypeDecision:
		return &entity.Decision{
			Base:         base,
			Status:       entity.DecisionStatus(in.Status),
			Context:      in.Context,
			Consequences: in.Consequences,
		}
	case entity.TypeTask:
		return &entity.Task{
			Base:     base,
			Status:   entity.TaskStatus(in.Status),
			Priority: entity.TaskPriority(in.Priority),
			DueDate:  in.DueDate,
			Assignee: in.Assignee,
		}
	case entity.TypeNote:
		return &entity.Note{Base: base, NoteType: in.NoteType}
	case entity.TypePrompt:
		return &entity.Prompt{Base: base, Template: in.Template, OutputSchema: in.OutputSchema}
	case entity.TypeComponent:
		return &entity.Component{Base: base, Status: entity.ComponentStatus(in.Status), Path: in.Path}
	case entity.TypeLink:
		return &entity.Link{Base: base, URL: in.URL, LinkType: in.LinkType}
	}
	return nil
}

func applyPatch(e entity.Entity, p EntityPatch) {
	b := e.Meta()
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Tags != nil {
		b.Tags = *p.Tags
	}
	if len(p.AddTags) > 0 || len(p.RemoveTags) > 0 {
		b.Tags = reviseTags(b.Tags, p.AddTags, p.RemoveTags)
	}
	switch v := e.(type) {
	case *entity.Decision:
		if p.Status != nil {
			v.Status = entity.DecisionStatus(*p.Status)
		}
		if p.Context != nil {
			v.Context = *p.Context
		}
		if p.Consequences != nil {
			v.Consequences = *p.Consequences
		}
	case *entity.Task:
		if p.Status != nil {
			v.Status = entity.TaskStatus(*p.Status)
		}
		if p.Priority != nil {
			v.Priority = entity.TaskPriority(*p.Priority)
		}
		if p.DueDate != nil {
			v.DueDate = *p.DueDate
		}
		if p.Assignee != nil {
			v.Assignee = *p.Assignee
		}
	case *entity.Note:
		if p.NoteType != nil {
			v.NoteType = *p.NoteType
		}
	case *entity.Prompt:
		if p.Template != nil {
			v.Template = *p.Template
		}
		if p.OutputSchema != nil {
			v.OutputSchema = *p.OutputSchema
		}
	case *entity.Component:
		if p.Status != nil {
			v.Status = entity.ComponentStatus(*p.Status)
		}
		if p.Path != nil {
			v.Path = *p.Path
		}
	case *entity.Link:
		if p.URL != nil {
			v.URL = *p.URL
		}
		if p.LinkType != nil {
			v.LinkType = *p.LinkType
		}
	}
}

// reviseTags removes then adds, keeping order and dropping duplicates.
func reviseTags(tags, add, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, t := range remove {
		drop[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(tags)+len(add))
	out := make([]string, 0, len(tags)+len(add))
	keep := func(t string) {
		if _, ok := drop[t]; ok {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range tags {
		keep(t)
	}
	for _, t := range add {
		keep(t)
	}
	return out
}

// CreateEntity adds a new entity and runs the mutation pipeline.
func (s *Service) CreateEntity(ctx context.Context, typeName string, in EntityInput) (entity.Entity, error) {
	t, err := entity.ParseType(typeName)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()
	e := buildEntity(t, in)
	if err := s.store.Add(e); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, change{t, e.Meta().ID}); err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntity resolves ref (full id, unique prefix, or type:sequence) and
// returns the entity.
func (s *Service) GetEntity(ref string) (entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, id, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	return s.store.Get(t, id)
}

// ListEntities pages through one type in sequence order, optionally
// narrowed by status and tag. The returned total counts matches before
// paging so callers can report it alongside the page.
func (s *Service) ListEntities(typeName, status, tag string, limit, offset int) ([]entity.Entity, int, error) {
	t, err := entity.ParseType(typeName)
	if err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, err := s.store.List(t)
	if err != nil {
		return nil, 0, err
	}
	if status != "" || tag != "" {
		filtered := make([]entity.Entity, 0, len(list))
		for _, e := range list {
			if status != "" && entityStatus(e) != status {
				continue
			}
			if tag != "" && !hasTag(e, tag) {
				continue
			}
			filtered = append(filtered, e)
		}
		list = filtered
	}
	return pageEntities(list, limit, offset), len(list), nil
}

// AllEntities returns every entity of one type in sequence order.
func (s *Service) AllEntities(typeName string) ([]entity.Entity, error) {
	t, err := entity.ParseType(typeName)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.List(t)
}

func entityStatus(e entity.Entity) string {
	switch v := e.(type) {
	case *entity.Decision:
		return string(v.Status)
	case *entity.Task:
		return string(v.Status)
	case *entity.Component:
		return string(v.Status)
	}
	return ""
}

func hasTag(e entity.Entity, tag string) bool {
	for _, t := range e.Meta().Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func pageEntities(list []entity.Entity, limit, offset int) []entity.Entity {
	limit = cache.ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

// UpdateEntity applies a patch to the resolved entity.
func (s *Service) UpdateEntity(ctx context.Context, ref string, patch EntityPatch) (entity.Entity, error) {
	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()
	t, id, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	e, err := s.store.Update(t, id, func(e entity.Entity) error {
		applyPatch(e, patch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, change{t, id}); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEntity removes the resolved entity. Its relations stay in the
// document as tombstoned edges; read paths filter them out.
func (s *Service) DeleteEntity(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()
	t, id, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := s.store.Delete(t, id); err != nil {
		return err
	}
	return s.commit(ctx, change{t, id})
}

// SupersedeDecision marks oldRef superseded by newRef.
func (s *Service) SupersedeDecision(ctx context.Context, oldRef, newRef string) error {
	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()
	oldT, oldID, err := s.resolve(oldRef)
	if err != nil {
		return err
	}
	newT, newID, err := s.resolve(newRef)
	if err != nil {
		return err
	}
	if oldT != entity.TypeDecision || newT != entity.TypeDecision {
		return merr.Validation("id", "supersede needs two decisions, got %s and %s", oldT, newT)
	}
	if oldID == newID {
		return merr.Validation("id", "a decision cannot supersede itself")
	}
	if err := s.store.Supersede(oldID, newID); err != nil {
		return err
	}
	return s.commit(ctx, change{entity.TypeDecision, oldID}, change{entity.TypeDecision, newID})
}

// ─── Reference resolution ───

// resolve maps a reference to (type, full id). Accepted forms: full uuid,
// id prefix of at least 4 chars when unique, or "type:sequence".
func (s *Service) resolve(ref string) (entity.Type, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", merr.Validation("id", "entity reference is required")
	}
	if typeName, seqStr, ok := strings.Cut(ref, ":"); ok {
		t, err := entity.ParseType(typeName)
		if err != nil {
			return "", "", err
		}
		seq, err := strconv.Atoi(seqStr)
		if err != nil || seq < 1 {
			return "", "", merr.Validation("id", "invalid sequence reference %q", ref)
		}
		list, err := s.store.List(t)
		if err != nil {
			return "", "", err
		}
		for _, e := range list {
			if e.Meta().SequenceNumber == seq {
				return t, e.Meta().ID, nil
			}
		}
		return "", "", merr.EntityNotFound(ref)
	}
	// Exact id match wins.
	if t, err := s.store.TypeOf(ref); err == nil {
		return t, ref, nil
	}
	if len(ref) < entity.MinIDPrefixLength {
		return "", "", merr.Validation("id",
			"id prefix must be at least %d characters", entity.MinIDPrefixLength)
	}
	var (
		foundType entity.Type
		foundID   string
		matches   int
	)
	all, err := s.store.ListAll()
	if err != nil {
		return "", "", err
	}
	for _, e := range all {
		if strings.HasPrefix(e.Meta().ID, ref) {
			matches++
			foundType = e.EntityType()
			foundID = e.Meta().ID
		}
	}
	switch matches {
	case 0:
		return "", "", merr.EntityNotFound(ref)
	case 1:
		return foundType, foundID, nil
	default:
		return "", "", merr.Validation("id", "ambiguous id prefix %q matches %d entities", ref, matches)
	}
}

// Resolve is the exported form used by tools and resources.
func (s *Service) Resolve(ref string) (entity.Type, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(ref)
}
