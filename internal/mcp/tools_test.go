package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zx06/xpasswd/internal/config"
	"github.com/zx06/xpasswd/internal/errors"
)

type envelope struct {
	OK    bool           `json:"ok"`
	Data  map[string]any `json:"data"`
	Error *struct {
		Code    errors.Code    `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, result *mcp.CallToolResult) envelope {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	var env envelope
	if err := json.Unmarshal([]byte(text.Text), &env); err != nil {
		t.Fatalf("invalid json %q: %v", text.Text, err)
	}
	if env.OK == result.IsError {
		t.Fatalf("ok=%v but IsError=%v", env.OK, result.IsError)
	}
	return env
}

func testConfig(dir string) *config.File {
	return &config.File{
		Profiles: map[string]config.Profile{
			"default": {
				Description: "local test profile",
				Command:     "printf '%s' %name > " + filepath.Join(dir, "name") + "; cat > " + filepath.Join(dir, "new") + "; cat %currpasspipe > " + filepath.Join(dir, "cur"),
			},
			"failing": {
				Command: "cat > /dev/null; echo denied >&2; exit 3",
			},
			"remote": {
				Command:  "ldappasswd -t %currpasspipe",
				SSHProxy: "bastion",
			},
			"dangling": {
				Command:  "true",
				SSHProxy: "missing",
			},
		},
		SSHProxies: map[string]config.SSHProxy{
			"bastion": {Host: "ldap.example.com", User: "pwchange"},
		},
	}
}

func TestCreateServer(t *testing.T) {
	server, err := CreateServer("test", testConfig(t.TempDir()), nil, "")
	if err != nil {
		t.Fatalf("CreateServer failed: %v", err)
	}
	if server == nil {
		t.Fatal("server is nil")
	}

	if _, err := CreateServer("test", nil, nil, ""); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestGetProfileNames_Sorted(t *testing.T) {
	h := NewToolHandler(testConfig(t.TempDir()), nil)
	names := h.getProfileNames()
	if !sort.StringsAreSorted(names) || len(names) != 4 {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestGetProfile(t *testing.T) {
	h := NewToolHandler(testConfig(t.TempDir()), nil)

	name, p, xe := h.getProfile("")
	if xe != nil || name != "default" || p.Description != "local test profile" {
		t.Fatalf("default profile: name=%q xe=%v", name, xe)
	}

	_, p, xe = h.getProfile("remote")
	if xe != nil {
		t.Fatal(xe)
	}
	if p.SSHConfig == nil || p.SSHConfig.Port != 22 {
		t.Fatalf("ssh proxy not resolved: %+v", p.SSHConfig)
	}

	if _, _, xe := h.getProfile("nonexistent"); xe == nil || xe.Code != errors.CodeCfgInvalid {
		t.Fatalf("expected CodeCfgInvalid, got %v", xe)
	}
	if _, _, xe := h.getProfile("dangling"); xe == nil || xe.Code != errors.CodeCfgInvalid {
		t.Fatalf("expected CodeCfgInvalid, got %v", xe)
	}
}

func TestFormatError(t *testing.T) {
	out := formatError(nil)
	if len(out) == 0 || out[0] != '{' {
		t.Fatalf("expected JSON, got %q", out)
	}
	var env envelope
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatal(err)
	}
	if env.OK || env.Error.Code != errors.CodeInternal {
		t.Errorf("unexpected envelope: %+v", env)
	}

	out = formatError(errors.New(errors.CodeExecTimeout, "timeout", map[string]any{"reason": "timeout"}))
	env = envelope{}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatal(err)
	}
	if env.Error.Code != errors.CodeExecTimeout || env.Error.Details["reason"] != "timeout" {
		t.Errorf("unexpected envelope: %+v", env.Error)
	}
}

func TestProfileList(t *testing.T) {
	h := NewToolHandler(testConfig(t.TempDir()), nil)
	result, _, err := h.ProfileList(context.Background(), &mcp.CallToolRequest{}, struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	env := decode(t, result)
	profiles, ok := env.Data["profiles"].([]any)
	if !ok || len(profiles) != 4 {
		t.Fatalf("unexpected profiles: %v", env.Data)
	}
	first := profiles[0].(map[string]any)
	if first["name"] != "dangling" || first["executor"] != "ssh" {
		t.Errorf("unexpected first profile: %v", first)
	}
}

func TestCommandPreview(t *testing.T) {
	dir := t.TempDir()
	h := NewToolHandler(testConfig(dir), nil)

	result, _, err := h.CommandPreview(context.Background(), &mcp.CallToolRequest{}, CommandPreviewInput{Profile: "default", Username: "alice@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	env := decode(t, result)
	if env.Data["current_password_pipe"] != true {
		t.Errorf("expected current_password_pipe, got %v", env.Data)
	}
	if _, err := os.Stat(filepath.Join(dir, "new")); !os.IsNotExist(err) {
		t.Error("preview must not run the command")
	}

	result, _, _ = h.CommandPreview(context.Background(), &mcp.CallToolRequest{}, CommandPreviewInput{Profile: "remote", Username: "alice"})
	if env := decode(t, result); env.Error == nil || env.Error.Code != errors.CodeCfgInvalid {
		t.Errorf("expected CodeCfgInvalid for remote %%currpasspipe, got %+v", env)
	}

	result, _, _ = h.CommandPreview(context.Background(), &mcp.CallToolRequest{}, CommandPreviewInput{Profile: "default"})
	if env := decode(t, result); env.Error == nil || env.Error.Code != errors.CodeCfgInvalid {
		t.Errorf("expected CodeCfgInvalid for missing username, got %+v", env)
	}
}

func TestPasswordChange_Success(t *testing.T) {
	dir := t.TempDir()
	h := NewToolHandler(testConfig(dir), nil)

	result, _, err := h.PasswordChange(context.Background(), &mcp.CallToolRequest{}, PasswordChangeInput{
		Profile:         "default",
		Username:        "alice@example.com",
		CurrentPassword: "0ld",
		NewPassword:     "n3w",
	})
	if err != nil {
		t.Fatal(err)
	}
	env := decode(t, result)
	if env.Data["changed"] != true || env.Data["profile"] != "default" {
		t.Fatalf("unexpected data: %v", env.Data)
	}
	for file, want := range map[string]string{"name": "alice", "new": "n3w", "cur": "0ld"} {
		got, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("%s=%q want %q", file, got, want)
		}
	}
}

func TestPasswordChange_CommandFails(t *testing.T) {
	h := NewToolHandler(testConfig(t.TempDir()), nil)
	result, _, err := h.PasswordChange(context.Background(), &mcp.CallToolRequest{}, PasswordChangeInput{
		Profile:     "failing",
		Username:    "alice",
		NewPassword: "n3w",
	})
	if err != nil {
		t.Fatal(err)
	}
	env := decode(t, result)
	if env.Error == nil || env.Error.Code != errors.CodeExecFailed {
		t.Fatalf("expected CodeExecFailed, got %+v", env)
	}
	if env.Error.Details["exit_code"] != float64(3) {
		t.Errorf("exit_code=%v", env.Error.Details["exit_code"])
	}
}

func TestPasswordChange_TimeoutOverride(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Profiles["slow"] = config.Profile{Command: "cat > /dev/null; sleep 5", Timeout: "30s"}
	h := NewToolHandler(cfg, nil).WithTimeout("200ms")

	start := time.Now()
	result, _, err := h.PasswordChange(context.Background(), &mcp.CallToolRequest{}, PasswordChangeInput{
		Profile:     "slow",
		Username:    "alice",
		NewPassword: "n3w",
	})
	if err != nil {
		t.Fatal(err)
	}
	env := decode(t, result)
	if env.Error == nil || env.Error.Code != errors.CodeExecTimeout {
		t.Fatalf("expected CodeExecTimeout, got %+v", env)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("override not applied, took %s", elapsed)
	}
}

func TestCreateServer_InvalidTimeout(t *testing.T) {
	_, err := CreateServer("test", testConfig(t.TempDir()), nil, "soon")
	xe, ok := errors.As(err)
	if !ok || xe.Code != errors.CodeCfgInvalid {
		t.Fatalf("expected CodeCfgInvalid, got %v", err)
	}
}

func TestPasswordChange_InvalidInput(t *testing.T) {
	h := NewToolHandler(testConfig(t.TempDir()), nil)
	cases := []struct {
		name  string
		input PasswordChangeInput
	}{
		{name: "missing username", input: PasswordChangeInput{Profile: "default", NewPassword: "x"}},
		{name: "unknown profile", input: PasswordChangeInput{Profile: "nope", Username: "alice"}},
		{name: "remote currpasspipe", input: PasswordChangeInput{Profile: "remote", Username: "alice"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, _, err := h.PasswordChange(context.Background(), &mcp.CallToolRequest{}, tc.input)
			if err != nil {
				t.Fatal(err)
			}
			env := decode(t, result)
			if env.Error == nil || env.Error.Code != errors.CodeCfgInvalid {
				t.Fatalf("expected CodeCfgInvalid, got %+v", env)
			}
		})
	}
}

func TestRawHandler_InvalidJSON(t *testing.T) {
	h := NewToolHandler(testConfig(t.TempDir()), nil)
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`{"profile":`)}}
	result, err := h.passwordChangeHandler(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if env := decode(t, result); env.Error == nil || env.Error.Code != errors.CodeCfgInvalid {
		t.Fatalf("expected CodeCfgInvalid, got %+v", env)
	}
}

func TestServer_InMemorySession(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	server, err := CreateServer("test", testConfig(dir), nil, "")
	if err != nil {
		t.Fatal(err)
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	tools, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"command_preview", "password_change", "profile_list"}
	if len(names) != len(want) {
		t.Fatalf("tools=%v want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("tools=%v want %v", names, want)
		}
	}

	result, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name: "password_change",
		Arguments: map[string]any{
			"profile":          "default",
			"username":         "bob@example.org",
			"current_password": "0ld",
			"new_password":     "n3w",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if env := decode(t, result); !env.OK {
		t.Fatalf("password_change failed: %+v", env.Error)
	}
	got, err := os.ReadFile(filepath.Join(dir, "name"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "bob" {
		t.Errorf("name=%q want bob", got)
	}
}
