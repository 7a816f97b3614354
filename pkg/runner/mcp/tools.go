package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerSendMessageTool(srv, svc)
	registerLoadConversationTool(srv, svc)
	registerNewConversationTool(srv, svc)
	registerGetTranscriptTool(srv, svc)
}

func registerSendMessageTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"send_message",
		mcp.WithDescription("Send a message to the procurement assistant and return the updated conversation."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("What the buyer wants to say."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Message string `json:"message"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		dto, err := svc.SendMessage(ctx, args.Message)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerLoadConversationTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"load_conversation",
		mcp.WithDescription("Open an existing conversation by id. Falls back to the local cache when the server is unreachable."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Conversation identifier."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		dto, err := svc.LoadConversation(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerNewConversationTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"new_conversation",
		mcp.WithDescription("Discard the current conversation and start a new one."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dto, err := svc.NewConversation(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerGetTranscriptTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_transcript",
		mcp.WithDescription("Return the current conversation, specification and shopping options."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dto, err := svc.Transcript(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return result, nil
}
