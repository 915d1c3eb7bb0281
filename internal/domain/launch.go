package domain

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Launch configuration names as they appear in the editor's debug picker.
const (
	LaunchBackendName  = "DetectIQ: Django Backend"
	LaunchFrontendName = "DetectIQ: Frontend (Next.js)"
	LaunchCompoundName = "DetectIQ: Full Stack"
)

// DefaultDjangoSettingsModule is the backend's settings module path.
const DefaultDjangoSettingsModule = "detectiq.webapp.backend.settings"

// DefaultFrontendDir is the Next.js app directory relative to the workspace.
const DefaultFrontendDir = "detectiq/webapp/frontend"

// LaunchSpec parameterizes the generated .vscode/launch.json. Zero values
// render the stock DetectIQ layout.
type LaunchSpec struct {
	DjangoSettingsModule string
	FrontendDir          string
}

type launchConfiguration struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Request    string            `json:"request"`
	Program    string            `json:"program,omitempty"`
	Args       []string          `json:"args,omitempty"`
	Django     bool              `json:"django,omitempty"`
	JustMyCode *bool             `json:"justMyCode,omitempty"`
	Console    string            `json:"console,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	Command    string            `json:"command,omitempty"`
	Cwd        string            `json:"cwd,omitempty"`
}

type launchCompound struct {
	Name           string   `json:"name"`
	Configurations []string `json:"configurations"`
}

type launchEnvelope struct {
	Version        string                `json:"version"`
	Configurations []launchConfiguration `json:"configurations"`
	Compounds      []launchCompound      `json:"compounds"`
}

// RenderLaunchJSON produces .vscode/launch.json: a debugpy configuration for
// the Django dev server (PYTHONPATH and DJANGO_SETTINGS_MODULE preset,
// --noreload so breakpoints bind in the main process), a node-terminal
// configuration for the Next.js dev server, and a compound that starts both.
// Output is stable two-space JSON with a trailing newline.
func RenderLaunchJSON(spec LaunchSpec) (string, error) {
	settingsModule := spec.DjangoSettingsModule
	if settingsModule == "" {
		settingsModule = DefaultDjangoSettingsModule
	}
	frontendDir := spec.FrontendDir
	if frontendDir == "" {
		frontendDir = DefaultFrontendDir
	}

	debugAll := false
	envelope := launchEnvelope{
		Version: "0.2.0",
		Configurations: []launchConfiguration{
			{
				Name:       LaunchBackendName,
				Type:       "debugpy",
				Request:    "launch",
				Program:    "${workspaceFolder}/manage.py",
				Args:       []string{"runserver", "--noreload"},
				Django:     true,
				JustMyCode: &debugAll,
				Console:    "integratedTerminal",
				Env: map[string]string{
					"PYTHONPATH":             "${workspaceFolder}",
					"DJANGO_SETTINGS_MODULE": settingsModule,
				},
			},
			{
				Name:    LaunchFrontendName,
				Type:    "node-terminal",
				Request: "launch",
				Command: "npm run dev",
				Cwd:     "${workspaceFolder}/" + frontendDir,
			},
		},
		Compounds: []launchCompound{
			{
				Name:           LaunchCompoundName,
				Configurations: []string{LaunchBackendName, LaunchFrontendName},
			},
		},
	}

	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render launch.json: %w", err)
	}
	return string(out) + "\n", nil
}
