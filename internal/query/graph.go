package query

import (
	"github.com/medullahq/medulla/internal/cache"
	"github.com/medullahq/medulla/internal/merr"
)

// DefaultMaxDepth bounds path searches unless the caller narrows it.
const DefaultMaxDepth = 10

// PathStep is one hop along a found path. Reversed marks edges traversed
// against their direction.
type PathStep struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation_type"`
	Reversed bool   `json:"reversed,omitempty"`
}

// Path is a shortest undirected route between two entities.
type Path struct {
	Nodes []string   `json:"nodes"`
	Steps []PathStep `json:"steps"`
}

// Relations returns the edges around an entity.
func (e *Engine) Relations(id string, dir cache.Direction, types []string) ([]*cache.Edge, error) {
	return e.cache.Relations(id, dir, types)
}

// Orphans returns entities with no relations, optionally of one type.
func (e *Engine) Orphans(limit int, typ string) ([]*cache.EntityRef, error) {
	return e.cache.Orphans(limit, typ)
}

// FindPath runs a breadth-first search over the relation graph, treating
// edges as undirected. Returns nil when no path exists within maxDepth.
// A negative maxDepth selects the default bound; zero allows no hops, so
// only a from == to query can produce a path.
func (e *Engine) FindPath(from, to string, maxDepth int) (*Path, error) {
	if maxDepth < 0 || maxDepth > DefaultMaxDepth {
		maxDepth = DefaultMaxDepth
	}
	for _, id := range []string{from, to} {
		ref, err := e.cache.Entity(id)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			return nil, merr.EntityNotFound(id)
		}
	}
	if from == to {
		return &Path{Nodes: []string{from}}, nil
	}
	if maxDepth == 0 {
		return nil, nil
	}
	edges, err := e.cache.AllEdges()
	if err != nil {
		return nil, err
	}
	type hop struct {
		next     string
		relation string
		reversed bool
	}
	adj := map[string][]hop{}
	for _, edge := range edges {
		adj[edge.SourceID] = append(adj[edge.SourceID], hop{edge.TargetID, edge.Type, false})
		adj[edge.TargetID] = append(adj[edge.TargetID], hop{edge.SourceID, edge.Type, true})
	}

	queue := []*visit{{id: from}}
	seen := map[string]bool{from: true}
	depth := map[string]int{from: 0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur.id] >= maxDepth {
			continue
		}
		for _, h := range adj[cur.id] {
			if seen[h.next] {
				continue
			}
			seen[h.next] = true
			depth[h.next] = depth[cur.id] + 1
			v := &visit{
				id:   h.next,
				prev: cur,
				step: PathStep{From: cur.id, To: h.next, Relation: h.relation, Reversed: h.reversed},
			}
			if h.next == to {
				return assemblePath(v), nil
			}
			queue = append(queue, v)
		}
	}
	return nil, nil
}

type visit struct {
	id   string
	prev *visit
	step PathStep
}

func assemblePath(last *visit) *Path {
	var steps []PathStep
	var nodes []string
	for v := last; v != nil; v = v.prev {
		nodes = append(nodes, v.id)
		if v.prev != nil {
			steps = append(steps, v.step)
		}
	}
	// Reverse into from→to order.
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return &Path{Nodes: nodes, Steps: steps}
}
