package server

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"hdcreasoner/internal/claudecode/format"
)

var (
	responseFormatter     format.ResponseFormatter
	responseFormatterOnce sync.Once
)

// initResponseFormatter picks the formatter the ten tool handlers' responses
// go through before being marshaled, from RESPONSE_FORMAT ("full" default,
// "compact", or "minimal").
func initResponseFormatter() {
	level := format.FormatLevel(os.Getenv("RESPONSE_FORMAT"))
	if level == "" {
		level = format.FormatFull
	}

	var opts format.FormatOptions
	switch level {
	case format.FormatCompact:
		opts = format.CompactOptions()
	case format.FormatMinimal:
		opts = format.MinimalOptions()
	default:
		opts = format.DefaultOptions()
	}

	responseFormatter = format.NewFormatter(level, opts)
}

func getResponseFormatter() format.ResponseFormatter {
	responseFormatterOnce.Do(initResponseFormatter)
	return responseFormatter
}

// toJSONContent marshals a response struct (ProveResponse, QueryResponse,
// ...) to the single TextContent block MCP clients expect, trimming it
// first per RESPONSE_FORMAT.
func toJSONContent(data interface{}) []mcp.Content {
	formatter := getResponseFormatter()
	if formatter.Level() != format.FormatFull {
		formatted, err := formatter.Format(data)
		if err == nil {
			data = formatted
		}
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		errData := map[string]string{"error": err.Error()}
		jsonData, _ = json.Marshal(errData)
	}

	return []mcp.Content{
		&mcp.TextContent{
			Text: string(jsonData),
		},
	}
}

