package ssh

import (
	"testing"

	"github.com/zx06/xpasswd/internal/config"
)

func TestOptionsFromProxy(t *testing.T) {
	p := config.SSHProxy{
		Host:           "ldap.example.com",
		Port:           2222,
		User:           "pwchange",
		IdentityFile:   "~/.ssh/id_ed25519",
		Passphrase:     "keyring:dirhost/passphrase",
		KnownHostsFile: "/etc/ssh/ssh_known_hosts",
	}

	opts := OptionsFromProxy(p, "resolved", false)
	if opts.Host != "ldap.example.com" || opts.Port != 2222 || opts.User != "pwchange" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Passphrase != "resolved" {
		t.Errorf("expected resolved passphrase, got %q", opts.Passphrase)
	}
	if opts.KnownHostsFile != "/etc/ssh/ssh_known_hosts" {
		t.Errorf("unexpected known hosts %q", opts.KnownHostsFile)
	}
	if opts.SkipKnownHostsCheck {
		t.Error("expected host key check to stay enabled")
	}
}

func TestOptionsFromProxy_SkipHostKey(t *testing.T) {
	if !OptionsFromProxy(config.SSHProxy{SkipHostKey: true}, "", false).SkipKnownHostsCheck {
		t.Error("profile skip_host_key should disable the check")
	}
	if !OptionsFromProxy(config.SSHProxy{}, "", true).SkipKnownHostsCheck {
		t.Error("flag should disable the check")
	}
}

func TestDefaultKnownHostsPath(t *testing.T) {
	if p := DefaultKnownHostsPath(); p != "~/.ssh/known_hosts" {
		t.Fatalf("unexpected: %q", p)
	}
}
