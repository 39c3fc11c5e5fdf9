package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/zx06/xpasswd/internal/config"
	"github.com/zx06/xpasswd/internal/errors"
	mcp_pkg "github.com/zx06/xpasswd/internal/mcp"
	"github.com/zx06/xpasswd/internal/secret"
)

// NewMCPCommand creates the MCP command group
func NewMCPCommand() *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP (Model Context Protocol) server commands",
	}

	mcpCmd.AddCommand(newMCPServerCommand())

	return mcpCmd
}

// newMCPServerCommand creates the MCP server command
func newMCPServerCommand() *cobra.Command {
	opts := &mcpServerOptions{}
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start MCP server exposing profile_list, command_preview and password_change",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.transportSet = cmd.Flags().Changed("transport")
			opts.httpAddrSet = cmd.Flags().Changed("http-addr")
			opts.httpAuthTokenSet = cmd.Flags().Changed("http-auth-token")
			opts.httpAllowRemoteSet = cmd.Flags().Changed("http-allow-remote")
			opts.timeoutSet = cmd.Flags().Changed("timeout")
			return runMCPServer(opts)
		},
	}
	cmd.Flags().StringVar(&opts.transport, "transport", mcp_pkg.TransportStdio, "MCP transport: stdio|streamable_http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "127.0.0.1:8787", "Streamable HTTP listen address")
	cmd.Flags().StringVar(&opts.httpAuthToken, "http-auth-token", "", "Streamable HTTP auth token (required for streamable_http)")
	cmd.Flags().BoolVar(&opts.httpAllowRemote, "http-allow-remote", false, "Allow listening on a non-loopback address")
	cmd.Flags().StringVar(&opts.timeout, "timeout", "", "Timeout for password_change; overrides profile timeouts")
	return cmd
}

// runMCPServer runs the MCP server
func runMCPServer(opts *mcpServerOptions) error {
	cfg, _, xe := config.LoadConfig(config.Options{
		ConfigPath: GlobalConfig.ConfigStr,
	})
	if xe != nil {
		return xe
	}

	resolved, xe := resolveMCPServerOptions(opts, cfg)
	if xe != nil {
		return xe
	}

	server, err := mcp_pkg.CreateServer(version, &cfg, newLogger(), resolved.timeout)
	if err != nil {
		// Convert SDK error to XError if needed
		if xe, ok := errors.As(err); ok {
			return xe
		}
		return errors.Wrap(errors.CodeInternal, "failed to create MCP server", nil, err)
	}

	switch resolved.transport {
	case mcp_pkg.TransportStdio:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, &mcp.StdioTransport{})
	case mcp_pkg.TransportStreamableHTTP:
		handler, err := mcp_pkg.NewStreamableHTTPHandler(server, resolved.httpAuthToken)
		if err != nil {
			if xe, ok := errors.As(err); ok {
				return xe
			}
			return errors.Wrap(errors.CodeInternal, "failed to create streamable http handler", nil, err)
		}
		httpServer := &http.Server{
			Addr:              resolved.httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		newLogger().Info("mcp streamable http server listening", "addr", resolved.httpAddr)
		return httpServer.ListenAndServe()
	default:
		return errors.New(errors.CodeCfgInvalid, "unsupported mcp transport", map[string]any{"transport": resolved.transport})
	}
}

type mcpServerOptions struct {
	transport          string
	transportSet       bool
	httpAddr           string
	httpAddrSet        bool
	httpAuthToken      string
	httpAuthTokenSet   bool
	httpAllowRemote    bool
	httpAllowRemoteSet bool
	timeout            string
	timeoutSet         bool
}

type mcpServerResolved struct {
	transport     string
	httpAddr      string
	httpAuthToken string
	timeout       string
}

func resolveMCPServerOptions(opts *mcpServerOptions, cfg config.File) (mcpServerResolved, *errors.XError) {
	if opts == nil {
		opts = &mcpServerOptions{}
	}

	transport := firstNonEmpty(
		valueIfSet(opts.transportSet, opts.transport),
		os.Getenv("XPASSWD_MCP_TRANSPORT"),
		cfg.MCP.Transport,
	)
	if transport == "" {
		transport = mcp_pkg.TransportStdio
	}
	if transport != mcp_pkg.TransportStdio && transport != mcp_pkg.TransportStreamableHTTP {
		return mcpServerResolved{}, errors.New(errors.CodeCfgInvalid, "invalid mcp transport", map[string]any{"transport": transport})
	}

	httpAddr := firstNonEmpty(
		valueIfSet(opts.httpAddrSet, opts.httpAddr),
		os.Getenv("XPASSWD_MCP_HTTP_ADDR"),
		cfg.MCP.HTTP.Addr,
	)
	if httpAddr == "" {
		httpAddr = "127.0.0.1:8787"
	}

	authToken := firstNonEmpty(
		valueIfSet(opts.httpAuthTokenSet, opts.httpAuthToken),
		os.Getenv("XPASSWD_MCP_HTTP_AUTH_TOKEN"),
	)
	if authToken == "" && cfg.MCP.HTTP.AuthToken != "" {
		secretValue, xe := secret.Resolve(cfg.MCP.HTTP.AuthToken, secret.Options{
			AllowPlaintext: cfg.MCP.HTTP.AllowPlaintextToken,
		})
		if xe != nil {
			return mcpServerResolved{}, xe
		}
		authToken = secretValue
	}

	if transport == mcp_pkg.TransportStreamableHTTP {
		if authToken == "" {
			return mcpServerResolved{}, errors.New(errors.CodeCfgInvalid, "streamable http transport requires auth token", nil)
		}
		allowRemote := cfg.MCP.HTTP.AllowRemote
		if raw := os.Getenv("XPASSWD_MCP_HTTP_ALLOW_REMOTE"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return mcpServerResolved{}, errors.Wrap(errors.CodeCfgInvalid, "invalid XPASSWD_MCP_HTTP_ALLOW_REMOTE", map[string]any{"value": raw}, err)
			}
			allowRemote = v
		}
		if opts.httpAllowRemoteSet {
			allowRemote = opts.httpAllowRemote
		}
		if xe := mcp_pkg.ValidateListenAddr(httpAddr, allowRemote); xe != nil {
			return mcpServerResolved{}, xe
		}
	}

	// password_change timeout: --timeout > XPASSWD_TIMEOUT > each profile's own
	timeout := firstNonEmpty(
		valueIfSet(opts.timeoutSet, opts.timeout),
		os.Getenv("XPASSWD_TIMEOUT"),
	)
	if timeout != "" {
		if _, xe := config.ParseTimeout(timeout); xe != nil {
			return mcpServerResolved{}, xe
		}
	}

	return mcpServerResolved{
		transport:     transport,
		httpAddr:      httpAddr,
		httpAuthToken: authToken,
		timeout:       timeout,
	}, nil
}

func valueIfSet(set bool, value string) string {
	if !set {
		return ""
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
