package store

import (
	"fmt"
	"time"

	"github.com/automerge/automerge-go"

	"github.com/medullahq/medulla/internal/entity"
)

const timeLayout = time.RFC3339Nano

// collection returns the root-level map holding one entity type, creating it
// lazily on first write.
func (s *Store) collection(t entity.Type) *automerge.Map {
	return s.doc.Path(t.Plural()).Map()
}

func (s *Store) relationsMap() *automerge.Map {
	return s.doc.Path("relations").Map()
}

// ─── Field readers ───
//
// Absent or mistyped fields read as zero values; the document may have been
// written by an older peer, so reads never hard-fail on shape.

func mapStr(m *automerge.Map, key string) (string, error) {
	v, err := m.Get(key)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	if v.Kind() != automerge.KindStr {
		return "", nil
	}
	return v.Str(), nil
}

func mapInt(m *automerge.Map, key string) (int, error) {
	v, err := m.Get(key)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", key, err)
	}
	switch v.Kind() {
	case automerge.KindInt64:
		return int(v.Int64()), nil
	case automerge.KindFloat64:
		return int(v.Float64()), nil
	}
	return 0, nil
}

func mapTime(m *automerge.Map, key string) (time.Time, error) {
	raw, err := mapStr(m, key)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	ts, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, nil
	}
	return ts.UTC(), nil
}

func mapStrList(m *automerge.Map, key string) ([]string, error) {
	v, err := m.Get(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if v.Kind() != automerge.KindList {
		return nil, nil
	}
	vals, err := v.List().Values()
	if err != nil {
		return nil, fmt.Errorf("reading %s items: %w", key, err)
	}
	out := make([]string, 0, len(vals))
	for _, item := range vals {
		if item.Kind() == automerge.KindStr {
			out = append(out, item.Str())
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func mapStrMap(m *automerge.Map, key string) (map[string]string, error) {
	v, err := m.Get(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if v.Kind() != automerge.KindMap {
		return nil, nil
	}
	inner := v.Map()
	keys, err := inner.Keys()
	if err != nil {
		return nil, fmt.Errorf("reading %s keys: %w", key, err)
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		val, err := mapStr(inner, k)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// ─── Entity encoding ───

// newEntity returns a zero entity of the given type.
func newEntity(t entity.Type) entity.Entity {
	switch t {
	case entity.TypeDecision:
		return &entity.Decision{}
	case entity.TypeTask:
		return &entity.Task{}
	case entity.TypeNote:
		return &entity.Note{}
	case entity.TypePrompt:
		return &entity.Prompt{}
	case entity.TypeComponent:
		return &entity.Component{}
	case entity.TypeLink:
		return &entity.Link{}
	}
	return nil
}

// entityFields flattens an entity into the field map stored in the document.
// Optional fields are omitted entirely rather than stored empty, so the
// field-diffing writer can express "cleared" as a delete.
func entityFields(e entity.Entity) map[string]any {
	b := e.Meta()
	f := map[string]any{
		"id":              b.ID,
		"title":           b.Title,
		"sequence_number": int64(b.SequenceNumber),
		"created_at":      b.CreatedAt.UTC().Format(timeLayout),
		"updated_at":      b.UpdatedAt.UTC().Format(timeLayout),
	}
	setIf := func(key, val string) {
		if val != "" {
			f[key] = val
		}
	}
	setIf("content", b.Content)
	setIf("created_by", b.CreatedBy)
	if len(b.Tags) > 0 {
		f["tags"] = append([]string(nil), b.Tags...)
	}
	switch v := e.(type) {
	case *entity.Decision:
		f["status"] = string(v.Status)
		setIf("context", v.Context)
		setIf("superseded_by", v.SupersededBy)
		if len(v.Consequences) > 0 {
			f["consequences"] = append([]string(nil), v.Consequences...)
		}
	case *entity.Task:
		f["status"] = string(v.Status)
		f["priority"] = string(v.Priority)
		setIf("due_date", v.DueDate)
		setIf("assignee", v.Assignee)
	case *entity.Note:
		setIf("note_type", v.NoteType)
	case *entity.Prompt:
		f["template"] = v.Template
		setIf("output_schema", v.OutputSchema)
	case *entity.Component:
		f["status"] = string(v.Status)
		setIf("path", v.Path)
	case *entity.Link:
		f["url"] = v.URL
		setIf("link_type", v.LinkType)
	}
	return f
}

// decodeEntity reads one entity out of its document map.
func decodeEntity(t entity.Type, em *automerge.Map) (entity.Entity, error) {
	e := newEntity(t)
	if e == nil {
		return nil, fmt.Errorf("unknown entity type %q", t)
	}
	b := e.Meta()
	var err error
	if b.ID, err = mapStr(em, "id"); err != nil {
		return nil, err
	}
	if b.Title, err = mapStr(em, "title"); err != nil {
		return nil, err
	}
	if b.Content, err = mapStr(em, "content"); err != nil {
		return nil, err
	}
	if b.CreatedBy, err = mapStr(em, "created_by"); err != nil {
		return nil, err
	}
	if b.Tags, err = mapStrList(em, "tags"); err != nil {
		return nil, err
	}
	if b.SequenceNumber, err = mapInt(em, "sequence_number"); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = mapTime(em, "created_at"); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = mapTime(em, "updated_at"); err != nil {
		return nil, err
	}

	str := func(key string) string {
		if err != nil {
			return ""
		}
		var v string
		v, err = mapStr(em, key)
		return v
	}
	switch v := e.(type) {
	case *entity.Decision:
		v.Status = entity.DecisionStatus(str("status"))
		v.Context = str("context")
		v.SupersededBy = str("superseded_by")
		if err == nil {
			v.Consequences, err = mapStrList(em, "consequences")
		}
	case *entity.Task:
		v.Status = entity.TaskStatus(str("status"))
		v.Priority = entity.TaskPriority(str("priority"))
		v.DueDate = str("due_date")
		v.Assignee = str("assignee")
	case *entity.Note:
		v.NoteType = str("note_type")
	case *entity.Prompt:
		v.Template = str("template")
		v.OutputSchema = str("output_schema")
	case *entity.Component:
		v.Status = entity.ComponentStatus(str("status"))
		v.Path = str("path")
	case *entity.Link:
		v.URL = str("url")
		v.LinkType = str("link_type")
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// relationFields flattens a relation for storage under its composite key.
func relationFields(r *entity.Relation) map[string]any {
	f := map[string]any{
		"source_id":     r.SourceID,
		"target_id":     r.TargetID,
		"relation_type": string(r.Type),
		"source_type":   string(r.SourceType),
		"target_type":   string(r.TargetType),
		"created_at":    r.CreatedAt.UTC().Format(timeLayout),
	}
	if len(r.Properties) > 0 {
		props := make(map[string]string, len(r.Properties))
		for k, v := range r.Properties {
			props[k] = v
		}
		f["properties"] = props
	}
	return f
}

func decodeRelation(rm *automerge.Map) (*entity.Relation, error) {
	r := &entity.Relation{}
	var err error
	if r.SourceID, err = mapStr(rm, "source_id"); err != nil {
		return nil, err
	}
	if r.TargetID, err = mapStr(rm, "target_id"); err != nil {
		return nil, err
	}
	rt, err := mapStr(rm, "relation_type")
	if err != nil {
		return nil, err
	}
	r.Type = entity.RelationType(rt)
	st, err := mapStr(rm, "source_type")
	if err != nil {
		return nil, err
	}
	r.SourceType = entity.Type(st)
	tt, err := mapStr(rm, "target_type")
	if err != nil {
		return nil, err
	}
	r.TargetType = entity.Type(tt)
	if r.CreatedAt, err = mapTime(rm, "created_at"); err != nil {
		return nil, err
	}
	if r.Properties, err = mapStrMap(rm, "properties"); err != nil {
		return nil, err
	}
	return r, nil
}
