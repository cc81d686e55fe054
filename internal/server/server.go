// Package server wires the service, tools and resources into one MCP server
// and fans mutation events out to resource subscribers.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
	"github.com/medullahq/medulla/internal/resources"
	"github.com/medullahq/medulla/internal/service"
	"github.com/medullahq/medulla/internal/tools"
)

const serverName = "medulla"

// Server is the composition root for one project.
type Server struct {
	svc *service.Service
	srv *mcp.Server
	log *slog.Logger

	mu   sync.Mutex
	subs map[string]struct{}
}

// New builds a fully wired server around an opened service.
func New(svc *service.Service, version string) *Server {
	s := &Server{
		svc:  svc,
		subs: make(map[string]struct{}),
		log:  slog.Default(),
	}
	s.srv = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, &mcp.ServerOptions{
		SubscribeHandler:   s.subscribe,
		UnsubscribeHandler: s.unsubscribe,
	})
	tools.Register(s.srv, svc)
	resources.Register(s.srv, svc)
	svc.SetNotifier(s)
	return s
}

// MCP exposes the underlying protocol server, mainly for transports.
func (s *Server) MCP() *mcp.Server { return s.srv }

// Run serves a single session over stdio until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.srv.Run(ctx, &mcp.StdioTransport{})
}

// ServeHTTP serves streamable HTTP sessions on addr until ctx is done.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.srv
	}, nil)
	hs := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	select {
	case <-ctx.Done():
		return hs.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// ─── Subscriptions ───

func (s *Server) subscribe(_ context.Context, req *mcp.SubscribeRequest) error {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, resources.Scheme) {
		return merr.InvalidResourceURI(uri)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[uri] = struct{}{}
	return nil
}

func (s *Server) unsubscribe(_ context.Context, req *mcp.UnsubscribeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, req.Params.URI)
	return nil
}

// Subscribed reports whether any client watches uri.
func (s *Server) Subscribed(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[uri]
	return ok
}

// EntityChanged implements service.Notifier. It is called after a mutation
// has been persisted, and pushes resource-updated notifications for the URIs
// a client has subscribed to.
func (s *Server) EntityChanged(typ entity.Type, id string) {
	candidates := []string{
		resources.URIEntities,
		resources.Scheme + "entities/" + string(typ),
		resources.Scheme + typ.Plural(),
		resources.Scheme + "entity/" + id,
	}
	s.mu.Lock()
	var updated []string
	for _, uri := range candidates {
		if _, ok := s.subs[uri]; ok {
			updated = append(updated, uri)
		}
	}
	s.mu.Unlock()

	for _, uri := range updated {
		err := s.srv.ResourceUpdated(context.Background(), &mcp.ResourceUpdatedNotificationParams{
			URI: uri,
		})
		if err != nil {
			s.log.Warn("resource notification failed", "uri", uri, "error", err)
		}
	}
}
