package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/config"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
	tools      []string
}

// NewHandler creates a stateless MCP handler exposing the portal tools.
func NewHandler(deps Deps, logger *common.Logger) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"niftyscope-portal",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	tools := RegisterTools(mcpSrv, deps)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().
		Int("tools", len(tools)).
		Msg("MCP handler initialized")

	return &Handler{
		streamable: streamable,
		logger:     logger,
		tools:      tools,
	}
}

// Tools returns the registered tool names.
func (h *Handler) Tools() []string {
	return append([]string(nil), h.tools...)
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
