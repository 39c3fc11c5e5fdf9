package secret

import (
	"bytes"
	"crypto/subtle"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// maxSecretSize 限制从文件/stdin 读取的密码长度。
const maxSecretSize = 64 << 10

// ReadFromPath 从文件读取密码，path 为 "-" 时读 stdin。
// 只去掉末尾一个换行（\n 或 \r\n）；首尾空格属于密码本身。
// 返回的 Buffer 由调用方 Close。
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return ReadFrom(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFrom(f)
}

// ReadFrom 读取 r 的全部内容作为密码（规则同 ReadFromPath）。
func ReadFrom(r io.Reader) (*Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSecretSize+1))
	if err != nil {
		Zero(data)
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	if len(data) > maxSecretSize {
		Zero(data)
		return nil, fmt.Errorf("secret exceeds %d bytes", maxSecretSize)
	}
	trimmed := trimNewline(data)
	b, err := NewFromBytes(trimmed)
	Zero(data)
	return b, err
}

func trimNewline(p []byte) []byte {
	if bytes.HasSuffix(p, []byte("\r\n")) {
		return p[:len(p)-2]
	}
	return bytes.TrimSuffix(p, []byte("\n"))
}

// Prompt 在终端上不回显地读取一行密码；fd 必须是终端。
func Prompt(fd int, out io.Writer, label string) (*Buffer, error) {
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot prompt for %s: not a terminal", label)
	}
	fmt.Fprintf(out, "%s: ", label)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		Zero(data)
		return nil, fmt.Errorf("reading %s: %w", label, err)
	}
	return NewFromBytes(data)
}

// PromptConfirm 读取两次并比较，不一致时报错。
func PromptConfirm(fd int, out io.Writer, label string) (*Buffer, error) {
	first, err := Prompt(fd, out, label)
	if err != nil {
		return nil, err
	}
	second, err := Prompt(fd, out, "Retype "+label)
	if err != nil {
		first.Close()
		return nil, err
	}
	defer second.Close()
	if subtle.ConstantTimeCompare(first.Bytes(), second.Bytes()) != 1 {
		first.Close()
		return nil, fmt.Errorf("%s entries do not match", label)
	}
	return first, nil
}
