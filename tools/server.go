// Package tools implements the MCP tool surface: a paid endpoint search tool
// and an execute tool that calls discovered endpoints, completing x402
// payments transparently.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Gordian-Labs/tilde-mcp/config"
)

// ServerName and ServerVersion identify the MCP server to clients.
const (
	ServerName    = "tilde-mcp"
	ServerVersion = "1.0.0"
)

const searchSchema = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "minLength": 5,
      "maxLength": 500,
      "description": "Natural-language description of the API you are looking for"
    },
    "numResults": {
      "type": "integer",
      "minimum": 1,
      "default": 10,
      "description": "Number of results to return, capped by server configuration"
    },
    "mustIncludeKeywords": {
      "type": "array",
      "items": {"type": "string", "minLength": 2, "maxLength": 50},
      "minItems": 3,
      "maxItems": 12,
      "description": "Keywords that must appear in matching endpoints"
    },
    "mustExcludeKeywords": {
      "type": "array",
      "items": {"type": "string"},
      "maxItems": 5,
      "description": "Keywords that must not appear in matching endpoints"
    },
    "qualityReqs": {
      "type": "array",
      "items": {"type": "string", "enum": ["reliability", "low-latency", "high-volume"]},
      "description": "Quality requirements for matching endpoints"
    },
    "temporal": {
      "type": "string",
      "enum": ["real-time", "historical", "both", "unknown"],
      "description": "Data freshness requirement"
    }
  },
  "required": ["query", "mustIncludeKeywords"]
}`

const executeSchema = `{
  "type": "object",
  "properties": {
    "endpoint": {
      "type": "object",
      "properties": {
        "resource": {
          "type": "string",
          "description": "Absolute URL of the endpoint to call"
        },
        "accepts": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "scheme": {"type": "string"},
              "network": {"type": "string"},
              "asset": {"type": "string"},
              "payTo": {"type": "string"},
              "maxAmountRequired": {"type": "string"},
              "mimeType": {"type": "string"},
              "extra": {"type": "object"}
            },
            "required": ["network", "payTo", "maxAmountRequired"]
          },
          "minItems": 1,
          "description": "Accepted payment methods; the first entry's network selects the paying wallet"
        }
      },
      "required": ["resource", "accepts"],
      "description": "Endpoint descriptor, usually taken verbatim from a search result"
    },
    "params": {
      "type": "object",
      "description": "Query parameters merged into the endpoint URL"
    },
    "method": {
      "type": "string",
      "enum": ["GET", "POST", "PUT", "DELETE"],
      "default": "GET"
    },
    "body": {
      "description": "JSON request body, sent for POST and PUT"
    }
  },
  "required": ["endpoint"]
}`

// NewServer builds the MCP server with the search and execute tools
// registered. It fails if the search signer cannot be constructed from the
// configured first network.
func NewServer(cfg *config.Config, log *zap.Logger) (*mcpserver.MCPServer, error) {
	searcher, err := NewSearcher(cfg, log)
	if err != nil {
		return nil, err
	}
	executor := NewExecutor(cfg, log)

	srv := mcpserver.NewMCPServer(ServerName, ServerVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	searchTool := mcp.NewToolWithRawSchema(
		"search",
		"Search for machine-payable HTTP APIs matching a natural-language query. Results include endpoint descriptors that can be passed to the execute tool.",
		json.RawMessage(searchSchema),
	)
	srv.AddTool(searchTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SearchRequest
		if err := bindArguments(req, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := searcher.Search(ctx, &args)
		if err != nil {
			return nil, err
		}
		return toolResult(result)
	})

	executeTool := mcp.NewToolWithRawSchema(
		"execute",
		"Call a machine-payable HTTP endpoint, paying any x402 challenge automatically. Takes an endpoint descriptor from a search result plus optional params, method and body.",
		json.RawMessage(executeSchema),
	)
	srv.AddTool(executeTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ExecuteRequest
		if err := bindArguments(req, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := executor.Execute(ctx, &args)
		if err != nil {
			return nil, err
		}
		return toolResult(result)
	})

	return srv, nil
}

// bindArguments decodes the tool call arguments into dst.
func bindArguments(req mcp.CallToolRequest, dst interface{}) error {
	encoded, err := json.Marshal(req.GetArguments())
	if err != nil {
		return fmt.Errorf("failed to read arguments: %w", err)
	}
	if err := json.Unmarshal(encoded, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// toolResult serializes an InvocationResult as the tool's text content.
func toolResult(result InvocationResult) (*mcp.CallToolResult, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
