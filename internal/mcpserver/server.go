package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/mark3labs/mcp-go/server"
)

// Server exposes wizard sessions as MCP tools over streamable HTTP, so an
// assistant can walk a farmer through the analysis on their behalf.
type Server struct {
	registry   *wizard.Registry
	version    string
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	stdServer  *http.Server
	port       int
	mu         sync.Mutex
}

// New creates an MCP server over registry. The server is not started until
// Start is called; handlers can be called directly before that.
func New(registry *wizard.Registry, version string) *Server {
	s := &Server{
		registry: registry,
		version:  version,
	}
	s.mcpServer = server.NewMCPServer(
		"agriwizard",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// Handler returns the streamable HTTP handler, for mounting on another mux.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer, server.WithStateLess(true))
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves /mcp in
// the background. It returns the bound port.
func (s *Server) Start(ctx context.Context, addr string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return 0, fmt.Errorf("server already started")
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	mcpHandler := server.NewStreamableHTTPServer(s.mcpServer, server.WithStateLess(true))
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)

	s.stdServer = &http.Server{Handler: mux}
	s.httpServer = mcpHandler

	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("mcp: server error: %v", err)
		}
	}()

	logger.Info("mcp: serving on port %d", s.port)
	return s.port, nil
}

// Stop shuts the HTTP listener down. Sessions stay in the registry.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil
	}

	if err := s.stdServer.Shutdown(context.Background()); err != nil {
		logger.Warn("mcp: error stopping server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.httpServer = nil
	s.stdServer = nil
	logger.Debug("mcp: server stopped")
	return nil
}

// URL returns the HTTP URL of the MCP endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://localhost:%d/mcp", s.port)
}
