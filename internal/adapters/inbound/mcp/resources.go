package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/detectiq/workbench/internal/adapters/outbound/pyproject"
	"github.com/detectiq/workbench/internal/domain"
)

// registerResources registers all workbench MCP resources on the given server.
func registerResources(s *server.MCPServer, root string) {
	// 1. detectiq://manifest - Poetry manifest summary
	s.AddResource(
		mcplib.NewResource(
			"detectiq://manifest",
			"Manifest",
			mcplib.WithResourceDescription("Summary of the workspace's Poetry manifest and its export targets"),
			mcplib.WithMIMEType("application/json"),
		),
		handleManifestResource(root),
	)

	// 2. detectiq://requirements/{target} - rendered export (resource template)
	s.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"detectiq://requirements/{target}",
			"Requirements Export",
			mcplib.WithTemplateDescription("The requirements content sync would write for one export file"),
			mcplib.WithTemplateMIMEType("text/plain"),
		),
		handleRequirementsResource(root),
	)
}

func handleManifestResource(root string) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		ws, err := openWorkspace(root)
		if err != nil {
			return nil, fmt.Errorf("opening workspace: %w", err)
		}

		manifest, err := pyproject.New().LoadManifest(ws.ManifestPath())
		if err != nil {
			return nil, fmt.Errorf("loading manifest: %w", err)
		}
		targets, err := domain.ExportTargets(manifest)
		if err != nil {
			return nil, err
		}

		summary := struct {
			Name         string         `json:"name"`
			Version      string         `json:"version"`
			Description  string         `json:"description,omitempty"`
			Python       string         `json:"python,omitempty"`
			Dependencies int            `json:"dependencies"`
			Groups       map[string]int `json:"groups,omitempty"`
			Extras       []string       `json:"extras,omitempty"`
			Targets      []string       `json:"targets"`
		}{
			Name:         manifest.Name,
			Version:      manifest.RawVersion,
			Description:  manifest.Description,
			Python:       manifest.Python.String(),
			Dependencies: len(manifest.Dependencies),
			Extras:       manifest.ExtraNames(),
		}
		if len(manifest.Groups) > 0 {
			summary.Groups = make(map[string]int, len(manifest.Groups))
			for name, deps := range manifest.Groups {
				summary.Groups[name] = len(deps)
			}
		}
		for _, t := range targets {
			summary.Targets = append(summary.Targets, t.File)
		}

		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling manifest summary: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      "detectiq://manifest",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

func handleRequirementsResource(root string) server.ResourceTemplateHandlerFunc {
	return func(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		// Extract the target file from the arguments (populated by template matching)
		target, ok := request.Params.Arguments["target"].(string)
		if !ok || target == "" {
			return nil, fmt.Errorf("target file name is required")
		}

		ws, err := openWorkspace(root)
		if err != nil {
			return nil, fmt.Errorf("opening workspace: %w", err)
		}

		syncSvc, _, _ := newServices()
		content, err := syncSvc.RenderTarget(ws, target)
		if err != nil {
			return nil, err
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/plain",
				Text:     content,
			},
		}, nil
	}
}
