package mcp

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zx06/xpasswd/internal/errors"
)

const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable_http"
)

const (
	authHeader    = "Authorization"
	bearerPrefix  = "Bearer "
	unauthorized  = "unauthorized"
	headerMissing = "authorization header is required"
)

// maxRequestBody 限制单个 JSON-RPC 请求体；password_change 的参数远小于此值。
const maxRequestBody = 1 << 20

// ValidateListenAddr 拒绝非回环监听地址，除非显式允许远程访问。
func ValidateListenAddr(addr string, allowRemote bool) *errors.XError {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Wrap(errors.CodeCfgInvalid, "invalid mcp http listen address", map[string]any{"addr": addr}, err)
	}
	if allowRemote || isLoopbackHost(host) {
		return nil
	}
	return errors.New(errors.CodeCfgInvalid, "mcp http listen address is not loopback; set allow_remote to expose password_change over the network",
		map[string]any{"addr": addr})
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// NewStreamableHTTPHandler creates a streamable HTTP handler with required auth.
func NewStreamableHTTPHandler(server *mcp.Server, authToken string) (http.Handler, error) {
	if server == nil {
		return nil, errors.New(errors.CodeInternal, "mcp server is nil", nil)
	}
	if authToken == "" {
		return nil, errors.New(errors.CodeCfgInvalid, "mcp streamable http auth token is required", nil)
	}
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})
	return requireAuth(handler, authToken), nil
}

func requireAuth(next http.Handler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		auth := strings.TrimSpace(req.Header.Get(authHeader))
		if auth == "" {
			http.Error(w, headerMissing, http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, bearerPrefix) {
			http.Error(w, unauthorized, http.StatusUnauthorized)
			return
		}
		received := strings.TrimPrefix(auth, bearerPrefix)
		if subtle.ConstantTimeCompare([]byte(received), []byte(token)) != 1 {
			http.Error(w, unauthorized, http.StatusUnauthorized)
			return
		}
		// 请求体可能含密码：限制大小，响应禁止缓存。
		req.Body = http.MaxBytesReader(w, req.Body, maxRequestBody)
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, req)
	})
}
