// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes lapse tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/models"
	"github.com/starford/lapse/internal/tracker"
)

const itemFormatURI = "lapse://item-format"

// Server wraps the MCP server with lapse tools.
type Server struct {
	mcp *server.MCPServer
	svc *tracker.Service
}

// New creates a new MCP server with all lapse tools registered.
func New(svc *tracker.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"lapse",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List tracked knowledge items with optional search, category and status filters."),
		mcp.WithString("search", mcp.Description("Case-insensitive match on name or description")),
		mcp.WithString("category", mcp.Description("Category id, or all")),
		mcp.WithString("status", mcp.Description("Status filter"),
			mcp.Enum("all", "active", "expiring-soon", "expired", "renewed")),
		mcp.WithString("sort", mcp.Description("Sort key"),
			mcp.Enum(models.SortExpiryDate, models.SortName, models.SortPriority, models.SortCreated)),
		mcp.WithNumber("page", mcp.Description("Page number, 1-based")),
		mcp.WithNumber("page_size", mcp.Description("Page size; 0 uses the itemsPerPage setting")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Read one knowledge item with its status and days until expiry."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("create_item",
		mcp.WithDescription("Track a new knowledge item. Fields MUST follow the item format "+
			"contract. Read it first via the get_item_contract tool or the "+itemFormatURI+" resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Existing category id (see list_categories)")),
		mcp.WithString("expiry_date", mcp.Required(), mcp.Description("Expiry date as YYYY-MM-DD")),
		mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum("low", "medium", "high", "critical")),
		mcp.WithNumber("cost", mcp.Description("Renewal cost")),
		mcp.WithString("description", mcp.Description("Free text description")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("notes", mcp.Description("Free text notes")),
	), s.createItem)

	s.mcp.AddTool(mcp.NewTool("renew_item",
		mcp.WithDescription("Record a renewal of an item at its current cost."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.renewItem)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List categories with their item counts."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("get_dashboard",
		mcp.WithDescription("Summary counts, total cost, nearest upcoming expiries and recent activity."),
	), s.getDashboard)

	s.mcp.AddTool(mcp.NewTool("get_reminders",
		mcp.WithDescription("Items expiring within the reminder window, followed by expired items."),
	), s.getReminders)

	s.mcp.AddTool(mcp.NewTool("get_analytics",
		mcp.WithDescription("Renewal statistics and status, priority and category histograms."),
	), s.getAnalytics)

	s.mcp.AddTool(mcp.NewTool("get_item_contract",
		mcp.WithDescription("Returns the knowledge item format contract. "+
			"Call this before creating items to ensure correct fields."),
	), s.getItemContract)

	// Resource: item format contract.
	s.mcp.AddResource(
		mcp.NewResource(itemFormatURI, "Item Format Contract",
			mcp.WithResourceDescription("Fields and rules for knowledge items and export documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readItemFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.svc.ListItems(ctx, tracker.ListQuery{
		Filter: lifecycle.Filter{
			Search:   req.GetString("search", ""),
			Category: req.GetString("category", ""),
			Status:   req.GetString("status", ""),
		},
		Sort:     req.GetString("sort", ""),
		Page:     req.GetInt("page", 0),
		PageSize: req.GetInt("page_size", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page)
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	card, err := s.svc.GetItem(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(card)
}

func (s *Server) createItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	expiry, err := req.RequireString("expiry_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	card, err := s.svc.CreateItem(ctx, models.ItemInput{
		Name:        name,
		Category:    category,
		ExpiryDate:  expiry,
		Priority:    models.Priority(req.GetString("priority", "")),
		Cost:        req.GetFloat("cost", 0),
		Description: req.GetString("description", ""),
		Tags:        splitTags(req.GetString("tags", "")),
		Notes:       req.GetString("notes", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", card.ID, card.ExpiryLabel)), nil
}

func (s *Server) renewItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	card, err := s.svc.RenewItem(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renewed: %s", card.Name)), nil
}

func (s *Server) listCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListCategories(ctx))
}

func (s *Server) getDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Dashboard(ctx))
}

func (s *Server) getReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := s.svc.Reminders(ctx)
	if len(list) == 0 {
		return mcp.NewToolResultText("no reminders"), nil
	}
	var b strings.Builder
	b.WriteString(lifecycle.Summarize(list).Message())
	for _, r := range list {
		fmt.Fprintf(&b, "\n- %s (%s): %d days", r.Item.Name, r.Item.ExpiryDate, r.DaysUntilExpiry)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getAnalytics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Analytics(ctx))
}

func (s *Server) getItemContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ItemFormatContract), nil
}

func (s *Server) readItemFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      itemFormatURI,
			MIMEType: "text/markdown",
			Text:     ItemFormatContract,
		},
	}, nil
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
