package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unowned-ai/daybook/pkg/entries"
)

// EntryService is the part of entries.Loader the tools use.
type EntryService interface {
	Load(ctx context.Context, param string) (entries.SerializedEntry, error)
	Update(ctx context.Context, param string, in entries.EntryInput) (entries.SerializedEntry, error)
	Create(ctx context.Context, in entries.EntryInput) (entries.SerializedEntry, error)
	ListTags(ctx context.Context) ([]string, error)
}

// RegisterPingTool registers the simple ping tool.
func RegisterPingTool(s *server.MCPServer) {
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong' to check if the Daybook MCP server is alive."),
	)
	s.AddTool(pingTool, pingHandler)
}

func pingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong_daybook"), nil
}

// RegisterGetEntryTool registers the get_entry tool.
func RegisterGetEntryTool(s *server.MCPServer, svc EntryService) {
	getEntryTool := mcp.NewTool("get_entry",
		mcp.WithDescription("Retrieves a journal entry with its tags by uuid."),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("The uuid of the entry to retrieve.")),
	)
	s.AddTool(getEntryTool, getEntryHandler(svc))
}

func getEntryHandler(svc EntryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "uuid")
		if !ok || id == "" {
			return mcp.NewToolResultError("'uuid' parameter is required and must be a non-empty string."), nil
		}

		entry, err := svc.Load(ctx, id)
		if errors.Is(err, entries.ErrEntryNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Entry '%s' not found.", id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get entry '%s': %v", id, err)), nil
		}
		return jsonResult(entry)
	}
}

// RegisterUpdateEntryTool registers the update_entry tool.
func RegisterUpdateEntryTool(s *server.MCPServer, svc EntryService) {
	updateEntryTool := mcp.NewTool("update_entry",
		mcp.WithDescription("Updates an entry. Fields that are not given keep their current value."),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("The uuid of the entry to update.")),
		mcp.WithString("title", mcp.Description("Optional new title.")),
		mcp.WithString("text", mcp.Description("Optional new body text.")),
		mcp.WithString("date", mcp.Description("Optional new date as an RFC 3339 timestamp.")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated list of tags. Replaces all existing tags; pass an empty string to clear them.")),
	)
	s.AddTool(updateEntryTool, updateEntryHandler(svc))
}

func updateEntryHandler(svc EntryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "uuid")
		if !ok || id == "" {
			return mcp.NewToolResultError("'uuid' parameter is required and must be a non-empty string."), nil
		}

		current, err := svc.Load(ctx, id)
		if errors.Is(err, entries.ErrEntryNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Entry '%s' not found.", id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load entry '%s': %v", id, err)), nil
		}

		in := entries.EntryInput{
			UUID:  current.UUID,
			Title: current.Title,
			Date:  current.Date,
			Text:  current.Text,
			Tags:  current.Tags,
		}
		changed := false
		if v, ok := stringArg(request, "title"); ok {
			in.Title, changed = v, true
		}
		if v, ok := stringArg(request, "text"); ok {
			in.Text, changed = v, true
		}
		if v, ok := stringArg(request, "date"); ok {
			in.Date, changed = v, true
		}
		if v, ok := tagsArg(request, "tags"); ok {
			in.Tags, changed = v, true
		}
		if !changed {
			return mcp.NewToolResultError("No update fields provided (use title, text, date, or tags)."), nil
		}

		updated, err := svc.Update(ctx, id, in)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update entry '%s': %v", id, err)), nil
		}
		return jsonResult(updated)
	}
}

// RegisterCreateEntryTool registers the create_entry tool.
func RegisterCreateEntryTool(s *server.MCPServer, svc EntryService) {
	createEntryTool := mcp.NewTool("create_entry",
		mcp.WithDescription("Creates a new journal entry."),
		mcp.WithString("title", mcp.Description("Optional title for the entry.")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Body text of the entry.")),
		mcp.WithString("date", mcp.Description("Optional date as an RFC 3339 timestamp. Defaults to now.")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated list of tags.")),
	)
	s.AddTool(createEntryTool, createEntryHandler(svc, nowISO))
}

func createEntryHandler(svc EntryService, now func() string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, ok := stringArg(request, "text")
		if !ok {
			return mcp.NewToolResultError("'text' parameter is required."), nil
		}
		title, _ := stringArg(request, "title")
		date, ok := stringArg(request, "date")
		if !ok || date == "" {
			date = now()
		}
		tags, _ := tagsArg(request, "tags")

		created, err := svc.Create(ctx, entries.EntryInput{Title: title, Date: date, Text: text, Tags: tags})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create entry: %v", err)), nil
		}
		return jsonResult(created)
	}
}

// RegisterListTagsTool registers the list_tags tool.
func RegisterListTagsTool(s *server.MCPServer, svc EntryService) {
	listTagsTool := mcp.NewTool("list_tags",
		mcp.WithDescription("Lists every tag in alphabetical order."),
	)
	s.AddTool(listTagsTool, listTagsHandler(svc))
}

func listTagsHandler(svc EntryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tags, err := svc.ListTags(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list tags: %v", err)), nil
		}
		return jsonResult(tags)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
