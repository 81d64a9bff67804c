package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/niftyscope/internal/config"
)

// versionInfo holds portal build fields and upstream reachability.
type versionInfo struct {
	Version     string `json:"version"`
	Build       string `json:"build"`
	Commit      string `json:"commit"`
	UpstreamAPI string `json:"upstream_api"`
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get NiftyScope portal version and market API status. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports the portal version and whether the market API answers.
func VersionToolHandler(market Market) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info := versionInfo{
			Version:     config.GetVersion(),
			Build:       config.GetBuild(),
			Commit:      config.GetGitCommit(),
			UpstreamAPI: "down",
		}

		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if market != nil && market.Health(ctx) == nil {
			info.UpstreamAPI = "ok"
		}

		return jsonResult(info), nil
	}
}
