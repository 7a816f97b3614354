package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const transcriptURI = "procure://transcript"

func registerResources(srv *server.MCPServer, svc *Service) {
	registerTranscriptResource(srv, svc)
}

func registerTranscriptResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		transcriptURI,
		"Transcript",
		mcp.WithResourceDescription("The current procurement conversation with its specification and shopping options."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dto, err := svc.Transcript(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, dto)
	})
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
