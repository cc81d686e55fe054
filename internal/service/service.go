// Package service is the single-writer facade over the store and its derived
// artifacts. Every mutation runs under one lock and flows through the same
// pipeline: persist the document, resync the cache, refresh embeddings,
// notify subscribers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/medullahq/medulla/internal/cache"
	"github.com/medullahq/medulla/internal/config"
	"github.com/medullahq/medulla/internal/embeddings"
	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/query"
	"github.com/medullahq/medulla/internal/snapshot"
	"github.com/medullahq/medulla/internal/store"
)

// Advisory thresholds surfaced as warnings in Stats.
const (
	warnEntityCount  = 10_000
	warnCRDTFileSize = 50 * 1024 * 1024
)

// Notifier receives change events after a mutation has been persisted and
// indexed. It is invoked with no Service lock held, so implementations may
// read back through the Service.
type Notifier interface {
	EntityChanged(typ entity.Type, id string)
}

// Service owns the project state. Safe for concurrent use.
type Service struct {
	mu       sync.RWMutex
	store    *store.Store
	cache    *cache.Cache
	engine   *query.Engine
	embedder embeddings.Embedder
	cfg      *config.Config
	notifier Notifier
	pending  []change
	log      *slog.Logger
}

// Open loads an initialized project: store, config, cache and, when
// configured, the embeddings client. The cache is synced on open.
func Open(root string) (*Service, error) {
	st, err := store.Open(root)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(st.ConfigPath())
	if err != nil {
		return nil, err
	}
	ca, err := cache.Open(st.CachePath())
	if err != nil {
		return nil, err
	}
	var embedder embeddings.Embedder
	client, err := embeddings.New(cfg.Embeddings)
	if err != nil {
		slog.Warn("embeddings disabled", "error", err)
	} else if client != nil {
		embedder = client
	}
	s := &Service{
		store:    st,
		cache:    ca,
		engine:   query.New(ca, embedder),
		embedder: embedder,
		cfg:      cfg,
		log:      slog.Default(),
	}
	if _, err := ca.SyncIfStale(st); err != nil {
		ca.Close()
		return nil, fmt.Errorf("initial cache sync: %w", err)
	}
	return s, nil
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Close()
}

// SetNotifier wires the subscription fan-out. Call before serving requests.
func (s *Service) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Config returns the loaded project configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Store exposes read paths for resources; callers must not mutate through
// it.
func (s *Service) Store() *store.Store { return s.store }

// change describes one entity affected by a mutation.
type change struct {
	typ entity.Type
	id  string
}

// commit is the post-mutation pipeline, called with the write lock held.
// Subscriber notifications are queued, not sent: the notifier may do network
// writes and must only run once the lock is released (see notifyPending).
func (s *Service) commit(ctx context.Context, changes ...change) error {
	if err := s.store.Save(); err != nil {
		return err
	}
	if err := s.cache.SyncFull(s.store); err != nil {
		return err
	}
	s.refreshEmbeddings(ctx, changes)
	s.pending = append(s.pending, changes...)
	return nil
}

// notifyPending flushes queued change notifications. Every mutator defers
// it after the unlock defer, so it always runs lock-free; the notifier may
// call back into the Service.
func (s *Service) notifyPending() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	n := s.notifier
	s.mu.Unlock()
	if n == nil {
		return
	}
	for _, c := range pending {
		n.EntityChanged(c.typ, c.id)
	}
}

// rollback restores in-memory state from disk after a failed multi-step
// mutation.
func (s *Service) rollback() {
	if err := s.store.Reload(); err != nil {
		s.log.Error("rollback reload failed", "error", err)
	}
}

// refreshEmbeddings re-embeds changed entities. Best effort: failures are
// logged, never returned.
func (s *Service) refreshEmbeddings(ctx context.Context, changes []change) {
	if s.embedder == nil {
		return
	}
	for _, c := range changes {
		e, err := s.store.Get(c.typ, c.id)
		if err != nil {
			continue // deleted; sync already pruned its vector
		}
		text := cache.EmbeddableText(e)
		hash := cache.TextHash(text)
		stored, err := s.cache.EmbeddingHash(c.id)
		if err != nil || stored == hash {
			continue
		}
		embedCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
		vec, err := s.embedder.Embed(embedCtx, text)
		cancel()
		if err != nil {
			s.log.Warn("embedding failed", "entity", c.id, "error", err)
			continue
		}
		err = s.cache.PutEmbedding(&cache.EmbeddingRow{
			EntityID:   c.id,
			EntityType: string(c.typ),
			Vector:     vec,
			TextHash:   hash,
			Model:      s.embedder.Model(),
		})
		if err != nil {
			s.log.Warn("storing embedding failed", "entity", c.id, "error", err)
		}
	}
}

// Stats reports store and cache statistics plus advisory warnings.
type StatsReport struct {
	*cache.Stats
	CRDTFileSize int64    `json:"crdt_file_size_bytes"`
	Warnings     []string `json:"warnings,omitempty"`
}

func (s *Service) Stats() (*StatsReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.cache.Stats()
	if err != nil {
		return nil, err
	}
	report := &StatsReport{Stats: st, CRDTFileSize: s.store.FileSize()}
	total := 0
	for _, n := range st.Entities {
		total += n
	}
	if total > warnEntityCount {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("entity count %d exceeds %d; consider archiving", total, warnEntityCount))
	}
	if report.CRDTFileSize > warnCRDTFileSize {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("document file is %d bytes; consider compaction", report.CRDTFileSize))
	}
	return report, nil
}

// GenerateSnapshot renders the markdown snapshot and returns its stats.
func (s *Service) GenerateSnapshot() (*snapshot.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot.Generate(s.store, s.store.SnapshotDir())
}

// RebuildCache forces a full reindex regardless of version state.
func (s *Service) RebuildCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.SyncFull(s.store)
}

// MergeDocument merges a peer's binary document into this project.
func (s *Service) MergeDocument(ctx context.Context, raw []byte) error {
	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()
	if err := s.store.MergeBytes(raw); err != nil {
		s.rollback()
		return err
	}
	return s.commit(ctx)
}

// SchemaJSON serves the schema resource.
func (s *Service) SchemaJSON() ([]byte, error) {
	return store.SchemaJSON()
}
