package mcp

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/stache-cli/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// shutdownTimeout bounds how long RunHTTP waits for in-flight sessions.
const shutdownTimeout = 5 * time.Second

const instructions = `Stache is a knowledge base of chunked documents grouped into namespaces.
Use search to find passages before answering questions about stored material.
Namespace and document ids may contain letters, digits, "_", "-" and "/".
Documents live in the "default" namespace unless another is given.`

// Server exposes one knowledge base client to MCP clients.
// All sessions share the client, so it must be safe for concurrent use.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the knowledge base tools and resources.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating ports")
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "stache", Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves a single session over stdio until the client disconnects
// or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	logger.Info("mcp: serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns a streamable HTTP handler. Every request is served by
// the same underlying server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves streamable HTTP on addr. When ctx is cancelled the
// listener closes and open sessions get shutdownTimeout to finish.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	served := make(chan error, 1)
	go func() {
		logger.Info("mcp: serving on http://%s", addr)
		served <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-served:
		return errors.Wrapf(err, "listen on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("mcp: shutdown: %v", err)
		return errors.Wrap(err, "shutdown")
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
