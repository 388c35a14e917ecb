package mcp

import (
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/unowned-ai/daybook/pkg/entries"
)

// stringArg returns the named argument when it is present and a string.
func stringArg(request mcp.CallToolRequest, name string) (string, bool) {
	v, ok := request.Params.Arguments[name].(string)
	return v, ok
}

// tagsArg accepts either a comma-separated string or a list of strings.
func tagsArg(request mcp.CallToolRequest, name string) ([]string, bool) {
	switch v := request.Params.Arguments[name].(type) {
	case string:
		return entries.NormalizeTags(strings.Split(v, ",")), true
	case []any:
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		return entries.NormalizeTags(tags), true
	default:
		return nil, false
	}
}

func nowISO() string {
	return entries.FormatDate(time.Now())
}
