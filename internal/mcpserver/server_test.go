package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lapse/internal/testutil"
	"github.com/starford/lapse/internal/tracker"
)

func testServer(t *testing.T) (*Server, *tracker.Service) {
	t.Helper()

	clock := testutil.NewClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := tracker.New(testutil.TestKV(t), tracker.WithClock(clock.Now))
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_items":
		result, err = srv.listItems(ctx, req)
	case "get_item":
		result, err = srv.getItem(ctx, req)
	case "create_item":
		result, err = srv.createItem(ctx, req)
	case "renew_item":
		result, err = srv.renewItem(ctx, req)
	case "list_categories":
		result, err = srv.listCategories(ctx, req)
	case "get_dashboard":
		result, err = srv.getDashboard(ctx, req)
	case "get_reminders":
		result, err = srv.getReminders(ctx, req)
	case "get_analytics":
		result, err = srv.getAnalytics(ctx, req)
	case "get_item_contract":
		result, err = srv.getItemContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndGetItem(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "create_item", map[string]interface{}{
		"name":        "CISSP",
		"category":    "certifications",
		"expiry_date": "2024-06-11",
		"cost":        float64(125),
		"tags":        "security, isc2 ,",
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	if text := resultText(r); !strings.HasSuffix(text, "(10 days)") {
		t.Errorf("create result = %q", text)
	}

	st, _ := svc.Snapshot()
	if len(st.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(st.Items))
	}
	item := st.Items[0]
	if item.Priority != "medium" || item.Cost != 125 || len(item.Tags) != 2 || item.Tags[1] != "isc2" {
		t.Errorf("stored item = %+v", item)
	}

	r = callTool(t, srv, "get_item", map[string]interface{}{"id": item.ID})
	var card map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &card); err != nil {
		t.Fatalf("get_item output: %v", err)
	}
	if card["status"] != "expiring-soon" {
		t.Errorf("status = %v, want expiring-soon", card["status"])
	}
}

func TestCreateItemInvalid(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_item", map[string]interface{}{
		"name":        "Broken",
		"category":    "no-such-category",
		"expiry_date": "2024-06-11",
	})
	if !r.IsError {
		t.Error("expected error for unknown category")
	}

	r = callTool(t, srv, "create_item", map[string]interface{}{"name": "Missing"})
	if !r.IsError {
		t.Error("expected error for missing required arguments")
	}
}

func TestGetItemMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_item", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing item")
	}
}

func TestRenewAndReminders(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "get_reminders", map[string]interface{}{})
	if text := resultText(r); text != "no reminders" {
		t.Errorf("empty reminders = %q", text)
	}

	_ = callTool(t, srv, "create_item", map[string]interface{}{
		"name": "Old", "category": "licenses", "expiry_date": "2024-05-01",
	})
	st, _ := svc.Snapshot()
	id := st.Items[0].ID

	r = callTool(t, srv, "get_reminders", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, "1 expired items") || !strings.Contains(text, "- Old (2024-05-01)") {
		t.Errorf("reminders = %q", text)
	}

	r = callTool(t, srv, "renew_item", map[string]interface{}{"id": id})
	if text := resultText(r); text != "renewed: Old" {
		t.Errorf("renew = %q", text)
	}
	r = callTool(t, srv, "renew_item", map[string]interface{}{"id": "ghost"})
	if !r.IsError {
		t.Error("expected error renewing missing item")
	}
}

func TestListItems(t *testing.T) {
	srv, _ := testServer(t)
	for _, name := range []string{"b", "a", "c"} {
		_ = callTool(t, srv, "create_item", map[string]interface{}{
			"name": name, "category": "skills", "expiry_date": "2025-01-01",
		})
	}

	r := callTool(t, srv, "list_items", map[string]interface{}{"sort": "name", "page_size": float64(2)})
	var page tracker.ItemPage
	if err := json.Unmarshal([]byte(resultText(r)), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || page.TotalPages != 2 || page.Items[0].Name != "a" {
		t.Errorf("page = %+v", page)
	}

	r = callTool(t, srv, "list_items", map[string]interface{}{"status": "bogus"})
	if !r.IsError {
		t.Error("expected error for unknown status")
	}
}

func TestReportTools(t *testing.T) {
	srv, _ := testServer(t)
	for _, tool := range []string{"list_categories", "get_dashboard", "get_analytics"} {
		r := callTool(t, srv, tool, map[string]interface{}{})
		if r.IsError || !json.Valid([]byte(resultText(r))) {
			t.Errorf("%s returned %q", tool, resultText(r))
		}
	}

	r := callTool(t, srv, "get_item_contract", map[string]interface{}{})
	if resultText(r) != ItemFormatContract {
		t.Error("contract text mismatch")
	}
}
