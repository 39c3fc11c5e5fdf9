package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zx06/xpasswd/internal/app"
	"github.com/zx06/xpasswd/internal/config"
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/log"
	"github.com/zx06/xpasswd/internal/output"
	"github.com/zx06/xpasswd/internal/runner"
	"github.com/zx06/xpasswd/internal/secret"
	"github.com/zx06/xpasswd/internal/template"
)

// CommandPreviewInput represents the input for the command_preview tool
type CommandPreviewInput struct {
	Profile  string `json:"profile" jsonschema:"Profile name to use"`
	Username string `json:"username" jsonschema:"Username (login or local@domain)"`
}

// PasswordChangeInput represents the input for the password_change tool
type PasswordChangeInput struct {
	Profile         string `json:"profile"`
	Username        string `json:"username"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ToolHandler manages MCP tools
type ToolHandler struct {
	config  *config.File
	logger  *slog.Logger
	timeout string // --timeout / XPASSWD_TIMEOUT; empty means profile timeout
}

// NewToolHandler creates a new tool handler
func NewToolHandler(cfg *config.File, logger *slog.Logger) *ToolHandler {
	if logger == nil {
		logger = log.Discard()
	}
	return &ToolHandler{
		config: cfg,
		logger: logger,
	}
}

// WithTimeout sets a timeout that takes precedence over every profile's own timeout
func (h *ToolHandler) WithTimeout(raw string) *ToolHandler {
	h.timeout = raw
	return h
}

// getProfileNames returns the sorted list of available profile names
func (h *ToolHandler) getProfileNames() []string {
	names := make([]string, 0, len(h.config.Profiles))
	for name := range h.config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterTools registers all tools with the MCP server
func (h *ToolHandler) RegisterTools(server *mcp.Server) {
	profileNames := h.getProfileNames()
	profileEnums := make([]any, len(profileNames))
	for i, name := range profileNames {
		profileEnums[i] = name
	}

	mcp.AddTool[struct{}, any](server, &mcp.Tool{
		Name:        "profile_list",
		Description: "List all configured password-change profiles",
	}, h.ProfileList)

	previewSchema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"profile", "username"},
		Properties: map[string]*jsonschema.Schema{
			"profile": {
				Type:        "string",
				Description: "Profile name to use",
				Enum:        profileEnums,
			},
			"username": {
				Type:        "string",
				Description: "Username (login or local@domain)",
			},
		},
	}
	server.AddTool(&mcp.Tool{
		Name:        "command_preview",
		Description: "Show the password-change command that would run for a user, without running it",
		InputSchema: previewSchema,
	}, h.commandPreviewHandler)

	changeSchema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"profile", "username", "new_password"},
		Properties: map[string]*jsonschema.Schema{
			"profile": {
				Type:        "string",
				Description: "Profile name to use",
				Enum:        profileEnums,
			},
			"username": {
				Type:        "string",
				Description: "Username (login or local@domain)",
			},
			"current_password": {
				Type:        "string",
				Description: "Current password; only sent when the profile command uses %currpasspipe",
			},
			"new_password": {
				Type:        "string",
				Description: "New password, written to the command's stdin",
			},
		},
	}
	server.AddTool(&mcp.Tool{
		Name:        "password_change",
		Description: "Change a user's password by running the profile's command",
		InputSchema: changeSchema,
	}, h.passwordChangeHandler)
}

// commandPreviewHandler is the raw handler for command_preview tool
func (h *ToolHandler) commandPreviewHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CommandPreviewInput
	if err := json.Unmarshal(req.Params.Arguments, &input); err != nil {
		return errorResult(errors.Wrap(errors.CodeCfgInvalid, "invalid input", nil, err)), nil
	}
	result, _, err := h.CommandPreview(ctx, req, input)
	return result, err
}

// passwordChangeHandler is the raw handler for password_change tool
func (h *ToolHandler) passwordChangeHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input PasswordChangeInput
	if err := json.Unmarshal(req.Params.Arguments, &input); err != nil {
		return errorResult(errors.Wrap(errors.CodeCfgInvalid, "invalid input", nil, err)), nil
	}
	result, _, err := h.PasswordChange(ctx, req, input)
	return result, err
}

// ProfileList lists all profiles
func (h *ToolHandler) ProfileList(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	return okResult(app.ListProfiles(*h.config, "")), nil, nil
}

// CommandPreview expands the profile command for a user
func (h *ToolHandler) CommandPreview(ctx context.Context, req *mcp.CallToolRequest, input CommandPreviewInput) (*mcp.CallToolResult, any, error) {
	if input.Username == "" {
		return errorResult(errors.New(errors.CodeCfgInvalid, "username is required", nil)), nil, nil
	}
	name, profile, xe := h.getProfile(input.Profile)
	if xe != nil {
		return errorResult(xe), nil, nil
	}
	res, xe := app.Preview(name, profile, template.Identity{Username: input.Username})
	if xe != nil {
		return errorResult(xe), nil, nil
	}
	return okResult(res), nil, nil
}

// PasswordChange runs the profile command with the given passwords
func (h *ToolHandler) PasswordChange(ctx context.Context, req *mcp.CallToolRequest, input PasswordChangeInput) (*mcp.CallToolResult, any, error) {
	if input.Username == "" {
		return errorResult(errors.New(errors.CodeCfgInvalid, "username is required", nil)), nil, nil
	}
	name, profile, xe := h.getProfile(input.Profile)
	if xe != nil {
		return errorResult(xe), nil, nil
	}
	timeout, xe := config.ResolveTimeout(h.timeout, h.timeout != "", "", profile.Timeout)
	if xe != nil {
		return errorResult(xe), nil, nil
	}
	r, xe := app.NewRunner(app.RunnerOptions{
		ProfileName: name,
		Profile:     profile,
		Timeout:     timeout,
		Logger:      h.logger,
	})
	if xe != nil {
		return errorResult(xe), nil, nil
	}

	creds := runner.Credentials{
		Current: []byte(input.CurrentPassword),
		New:     []byte(input.NewPassword),
	}
	defer secret.Zero(creds.Current)
	defer secret.Zero(creds.New)

	if xe := r.Change(ctx, template.Identity{Username: input.Username}, creds); xe != nil {
		return errorResult(xe), nil, nil
	}
	return okResult(output.ChangeResult{Changed: true, User: input.Username, Profile: name}), nil, nil
}

// getProfile returns the named profile with its ssh_proxy resolved;
// an empty name selects the "default" profile.
func (h *ToolHandler) getProfile(name string) (string, config.Profile, *errors.XError) {
	if name == "" {
		name = "default"
	}
	profile, ok := h.config.Profiles[name]
	if !ok {
		return "", config.Profile{}, errors.New(errors.CodeCfgInvalid, "profile does not exist", map[string]any{"name": name, "reason": "profile_not_found"})
	}
	sc, xe := config.ResolveSSHProxy(*h.config, profile)
	if xe != nil {
		return "", config.Profile{}, xe
	}
	profile.SSHConfig = sc
	return name, profile, nil
}

func okResult(data any) *mcp.CallToolResult {
	jsonData, err := json.MarshalIndent(output.OKEnvelope(data), "", "  ")
	if err != nil {
		return errorResult(errors.Wrap(errors.CodeInternal, "failed to marshal result", nil, err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonData)},
		},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: formatError(err)},
		},
	}
}

// formatError formats an error as a JSON envelope
func formatError(err error) string {
	var xe *errors.XError
	if err != nil {
		xe = errors.AsOrWrap(err)
	} else {
		xe = errors.New(errors.CodeInternal, "unknown error", nil)
	}
	jsonData, _ := json.MarshalIndent(output.ErrorEnvelope(xe), "", "  ")
	return string(jsonData)
}

// CreateServer creates a new MCP server. timeout, when non-empty, overrides
// the per-profile timeout of password_change.
func CreateServer(version string, cfg *config.File, logger *slog.Logger, timeout string) (*mcp.Server, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeInternal, "config is nil", nil)
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "xpasswd",
		Version: version,
	}, nil)

	if timeout != "" {
		if _, xe := config.ParseTimeout(timeout); xe != nil {
			return nil, xe
		}
	}
	handler := NewToolHandler(cfg, logger).WithTimeout(timeout)
	handler.RegisterTools(server)

	return server, nil
}
