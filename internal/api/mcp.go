package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/houhousishu/houhou/internal/catalog"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Catalog *catalog.Facade
	Content *catalog.Content
}

// NewMCPServer creates an MCP server exposing the studio's catalog.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"houhou",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("houhou: courses and articles of 厚厚私塾, served from the content API or the local store when it is offline."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("list_services",
			mcp.WithDescription("List the courses the studio offers."),
		),
		mcpListServices(deps),
	)

	s.AddTool(
		mcp.NewTool("list_resources",
			mcp.WithDescription("List articles, optionally filtered by category."),
			mcp.WithString("category", mcp.Description("parenting, reading or crafts")),
		),
		mcpListResources(deps),
	)

	s.AddTool(
		mcp.NewTool("add_resource",
			mcp.WithDescription("Publish an article. Requires a signed-in session."),
			mcp.WithString("title", mcp.Description("Article title"), mcp.Required()),
			mcp.WithString("category", mcp.Description("parenting, reading or crafts"), mcp.Required()),
			mcp.WithString("summary", mcp.Description("One-line summary")),
			mcp.WithString("content", mcp.Description("Article body, one paragraph per line"), mcp.Required()),
			mcp.WithString("image", mcp.Description("Cover image URL")),
			mcp.WithString("author", mcp.Description("Author name")),
			mcp.WithArray("tags", mcp.Description("Optional tags")),
		),
		mcpAddResource(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"catalog://services",
			"Services",
			mcp.WithResourceDescription("All courses as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceServices(deps),
	)

	return s
}

func mcpListServices(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		services, err := deps.Catalog.Services.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list services: %v", err)), nil
		}
		b, err := json.Marshal(viewServices(services))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal services: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListResources(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category := req.GetString("category", "")
		if category != "" {
			if _, err := catalog.ParseCategory(category); err != nil {
				return mcpError(err.Error()), nil
			}
		}

		resources, err := deps.Catalog.Resources.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list resources: %v", err)), nil
		}
		out := make([]catalog.Resource, 0, len(resources))
		for _, r := range resources {
			if category == "" || string(r.Category) == category {
				out = append(out, r)
			}
		}
		if len(out) == 0 {
			return mcpText("No articles found."), nil
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal resources: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddResource(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}
		category, err := req.RequireString("category")
		if err != nil {
			return mcpError("category is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		s, err := deps.Catalog.Auth.Session(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read session: %v", err)), nil
		}
		if s == nil {
			return mcpError("sign in required: run 'houhou login' first"), nil
		}

		created, err := deps.Content.AddResource(ctx, catalog.Resource{
			Category: catalog.Category(category),
			Title:    title,
			Summary:  req.GetString("summary", ""),
			Image:    req.GetString("image", ""),
			Author:   req.GetString("author", ""),
			Tags:     req.GetStringSlice("tags", nil),
			Content:  catalog.SplitLines(content),
		})
		if err != nil && created.ID == "" {
			return mcpError(fmt.Sprintf("failed to add resource: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Published article %s on the %s backend", created.ID, deps.Catalog.Backend())), nil
	}
}

func mcpResourceServices(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		services, err := deps.Catalog.Services.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list services: %w", err)
		}

		b, err := json.Marshal(viewServices(services))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal services: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
