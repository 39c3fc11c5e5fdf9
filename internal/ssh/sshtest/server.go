// Package sshtest 提供进程内 SSH 服务器，用于测试远程命令执行。
package sshtest

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Handler 处理一次 exec 请求并返回退出码。
// ctx 在客户端发送 signal 或关闭会话时取消。
type Handler func(ctx context.Context, command string, stdin io.Reader, stderr io.Writer) int

// Server 是仅接受一把随机生成客户端密钥的 SSH 服务器。
type Server struct {
	Host           string
	Port           int
	IdentityFile   string // 客户端私钥（OpenSSH PEM，无 passphrase）
	KnownHostsFile string // 只包含本服务器 host key

	config  *ssh.ServerConfig
	handler Handler
	ln      net.Listener
	wg      sync.WaitGroup
}

// NewServer 启动服务器，测试结束时自动关闭。
func NewServer(t testing.TB, handler Handler) *Server {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}
	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	authorized, err := ssh.NewPublicKey(clientPub)
	if err != nil {
		t.Fatalf("client public key: %v", err)
	}

	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown public key for %s", key.Type())
		},
	}
	cfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)

	dir := t.TempDir()
	block, err := ssh.MarshalPrivateKey(clientPriv, "sshtest")
	if err != nil {
		t.Fatalf("marshal client key: %v", err)
	}
	identity := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(identity, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write identity: %v", err)
	}
	known := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{ln.Addr().String()}, hostSigner.PublicKey())
	if err := os.WriteFile(known, []byte(line+"\n"), 0o600); err != nil {
		t.Fatalf("write known_hosts: %v", err)
	}

	s := &Server{
		Host:           addr.IP.String(),
		Port:           addr.Port,
		IdentityFile:   identity,
		KnownHostsFile: known,
		config:         cfg,
		handler:        handler,
		ln:             ln,
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Close 停止接受新连接并等待 accept 循环退出。
func (s *Server) Close() {
	s.ln.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		conn.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, chReqs)
	}
}

func (s *Server) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for req := range reqs {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			go func() {
				status := s.handler(ctx, payload.Command, ch, ch.Stderr())
				ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
				ch.Close()
			}()
		case "signal":
			cancel()
			if req.WantReply {
				req.Reply(true, nil)
			}
			ch.Close()
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}
