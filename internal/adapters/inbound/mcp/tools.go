package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/detectiq/workbench/internal/adapters/outbound/config"
	"github.com/detectiq/workbench/internal/adapters/outbound/gitinfo"
	"github.com/detectiq/workbench/internal/adapters/outbound/pyproject"
	"github.com/detectiq/workbench/internal/adapters/outbound/reqstore"
	"github.com/detectiq/workbench/internal/adapters/outbound/rulescan"
	"github.com/detectiq/workbench/internal/adapters/outbound/secrets"
	"github.com/detectiq/workbench/internal/adapters/outbound/settingsstore"
	"github.com/detectiq/workbench/internal/application"
	"github.com/detectiq/workbench/internal/domain"
)

// registerTools registers all workbench MCP tools on the given server.
func registerTools(s *server.MCPServer, root string) {
	// 1. detectiq_sync_status
	s.AddTool(
		mcplib.NewTool("detectiq_sync_status",
			mcplib.WithDescription("Returns the requirements sync report for the workspace as JSON"),
		),
		handleSyncStatus(root),
	)

	// 2. detectiq_get_config
	s.AddTool(
		mcplib.NewTool("detectiq_get_config",
			mcplib.WithDescription("Returns the workbench settings with secret values redacted"),
		),
		handleGetConfig(root),
	)

	// 3. detectiq_list_rulesets
	s.AddTool(
		mcplib.NewTool("detectiq_list_rulesets",
			mcplib.WithDescription("Scans the configured rule directories and returns a report per rule type"),
		),
		handleListRulesets(root),
	)

	// 4. detectiq_check_vectorstores
	s.AddTool(
		mcplib.NewTool("detectiq_check_vectorstores",
			mcplib.WithDescription("Reports the state of each rule type's vector store directory"),
		),
		handleCheckVectorStores(root),
	)

	// 5. detectiq_render_launch_config
	s.AddTool(
		mcplib.NewTool("detectiq_render_launch_config",
			mcplib.WithDescription("Renders the VS Code launch.json the workbench scaffolds for the Django backend and Next.js frontend"),
			mcplib.WithString("django_settings_module",
				mcplib.Description("Django settings module for the backend configuration"),
			),
			mcplib.WithString("frontend_dir",
				mcplib.Description("Frontend directory relative to the workspace root"),
			),
		),
		handleRenderLaunchConfig(),
	)
}

// openWorkspace resolves the workspace config for root, falling back to the
// defaults when no .detectiq.yaml exists.
func openWorkspace(root string) (application.Workspace, error) {
	cfg, err := config.New().Load(root)
	if err != nil {
		return application.Workspace{}, err
	}
	return application.NewWorkspace(root, cfg)
}

// newServices creates the standard set of outbound adapters and services.
func newServices() (*application.SyncService, *application.SettingsService, *application.RulesetService) {
	syncSvc := application.NewSyncService(pyproject.New(), reqstore.New(), gitinfo.New(), nil, nil)
	settingsSvc := application.NewSettingsService(settingsstore.New(), secrets.NewKeyring(), nil)
	rulesetSvc := application.NewRulesetService(rulescan.New(), rulescan.NewStores())
	return syncSvc, settingsSvc, rulesetSvc
}

func handleSyncStatus(root string) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		ws, err := openWorkspace(root)
		if err != nil {
			return errorResult(fmt.Sprintf("opening workspace: %v", err)), nil
		}

		syncSvc, _, _ := newServices()
		report, err := syncSvc.Plan(ws)
		if err != nil {
			return errorResult(fmt.Sprintf("planning sync: %v", err)), nil
		}
		return jsonResult(report)
	}
}

func handleGetConfig(root string) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		ws, err := openWorkspace(root)
		if err != nil {
			return errorResult(fmt.Sprintf("opening workspace: %v", err)), nil
		}

		_, settingsSvc, _ := newServices()
		cfg, err := settingsSvc.Load(ws)
		if err != nil {
			return errorResult(fmt.Sprintf("loading settings: %v", err)), nil
		}
		return jsonResult(cfg.Redacted())
	}
}

func handleListRulesets(root string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		ws, err := openWorkspace(root)
		if err != nil {
			return errorResult(fmt.Sprintf("opening workspace: %v", err)), nil
		}

		_, settingsSvc, rulesetSvc := newServices()
		cfg, err := settingsSvc.Load(ws)
		if err != nil {
			return errorResult(fmt.Sprintf("loading settings: %v", err)), nil
		}

		reports, err := rulesetSvc.ScanAll(ctx, ws, cfg)
		if err != nil {
			return errorResult(fmt.Sprintf("scanning rulesets: %v", err)), nil
		}
		return jsonResult(reports)
	}
}

func handleCheckVectorStores(root string) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		ws, err := openWorkspace(root)
		if err != nil {
			return errorResult(fmt.Sprintf("opening workspace: %v", err)), nil
		}

		_, settingsSvc, rulesetSvc := newServices()
		cfg, err := settingsSvc.Load(ws)
		if err != nil {
			return errorResult(fmt.Sprintf("loading settings: %v", err)), nil
		}

		stores, err := rulesetSvc.StoreStatuses(cfg)
		if err != nil {
			return errorResult(fmt.Sprintf("checking vector stores: %v", err)), nil
		}
		return jsonResult(stores)
	}
}

func handleRenderLaunchConfig() server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		args := request.GetArguments()
		spec := domain.LaunchSpec{}
		if v, ok := args["django_settings_module"].(string); ok {
			spec.DjangoSettingsModule = v
		}
		if v, ok := args["frontend_dir"].(string); ok {
			spec.FrontendDir = v
		}

		launch, err := domain.RenderLaunchJSON(spec)
		if err != nil {
			return errorResult(fmt.Sprintf("rendering launch config: %v", err)), nil
		}
		return textResult(launch), nil
	}
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// textResult returns a plain text content result.
func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(text)},
	}
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
