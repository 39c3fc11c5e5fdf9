package runner

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zx06/xpasswd/internal/config"
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/log"
	"github.com/zx06/xpasswd/internal/template"
)

type fakeExecutor struct {
	calls    []Invocation
	deadline time.Duration
	outcome  Outcome
	err      *errors.XError
}

func (f *fakeExecutor) Execute(ctx context.Context, inv Invocation) (Outcome, *errors.XError) {
	f.calls = append(f.calls, inv)
	if d, ok := ctx.Deadline(); ok {
		f.deadline = time.Until(d)
	}
	return f.outcome, f.err
}

func newTestRunner(tmpl string, exec Executor) (*Runner, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Runner{
		Profile:  "default",
		Template: tmpl,
		Executor: exec,
		Logger:   log.NewWithLevel(&buf, slog.LevelInfo),
	}, &buf
}

func logLines(buf *bytes.Buffer) []string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

var alice = template.Identity{Username: "alice@example.com"}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "success", ResultSuccess.String())
	assert.Equal(t, "error", ResultError.String())
	var zero Result
	assert.Equal(t, ResultError, zero)
}

func TestSave_Success(t *testing.T) {
	fe := &fakeExecutor{}
	r, buf := newTestRunner("ldappasswd -D uid=%name,%dc -T /dev/stdin", fe)

	res := r.Save(context.Background(), alice, Credentials{New: []byte("n3w")})
	assert.Equal(t, ResultSuccess, res)

	require.Len(t, fe.calls, 1)
	inv := fe.calls[0]
	assert.Equal(t, "ldappasswd -D uid=alice,dc=example,dc=com -T /dev/stdin", inv.Command)
	assert.Equal(t, []byte("n3w"), inv.Stdin)
	assert.False(t, inv.CurrentPipe)

	lines := logLines(buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "password changed")
	assert.NotContains(t, buf.String(), "n3w")
}

func TestSave_EmptyTemplateDoesNotSpawn(t *testing.T) {
	for _, tmpl := range []string{"", "   ", "\t\n"} {
		fe := &fakeExecutor{}
		r, buf := newTestRunner(tmpl, fe)

		assert.Equal(t, ResultError, r.Save(context.Background(), alice, Credentials{New: []byte("x")}))
		assert.Empty(t, fe.calls)
		assert.Empty(t, logLines(buf))

		xe := r.Change(context.Background(), alice, Credentials{New: []byte("x")})
		require.NotNil(t, xe)
		assert.Equal(t, errors.CodeCfgInvalid, xe.Code)
	}
}

func TestChange_CurrentPasswordOnlyWhenRequested(t *testing.T) {
	creds := Credentials{Current: []byte("0ld"), New: []byte("n3w")}

	fe := &fakeExecutor{}
	r, _ := newTestRunner("tool -t %currpasspipe -u %l", fe)
	require.Nil(t, r.Change(context.Background(), alice, creds))
	require.Len(t, fe.calls, 1)
	assert.Equal(t, "tool -t /dev/fd/3 -u alice@example.com", fe.calls[0].Command)
	assert.True(t, fe.calls[0].CurrentPipe)
	assert.Equal(t, []byte("0ld"), fe.calls[0].Current)
	assert.Equal(t, []byte("n3w"), fe.calls[0].Stdin)

	fe = &fakeExecutor{}
	r, _ = newTestRunner("tool -u %l", fe)
	require.Nil(t, r.Change(context.Background(), alice, creds))
	require.Len(t, fe.calls, 1)
	assert.False(t, fe.calls[0].CurrentPipe)
	assert.Nil(t, fe.calls[0].Current)
}

func TestChange_NonZeroExitLogsOnce(t *testing.T) {
	fe := &fakeExecutor{outcome: Outcome{ExitCode: 1, Stderr: "  Invalid credentials (49)\n"}}
	r, buf := newTestRunner("tool -u %n", fe)

	xe := r.Change(context.Background(), alice, Credentials{Current: []byte("0ld"), New: []byte("n3w")})
	require.NotNil(t, xe)
	assert.Equal(t, errors.CodeExecFailed, xe.Code)
	assert.Equal(t, 1, xe.Details["exit_code"])
	assert.Equal(t, errors.ExitExec, errors.ExitCodeFor(xe.Code))

	lines := logLines(buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "level=ERROR")
	assert.Contains(t, lines[0], "exit_code=1")
	assert.Contains(t, lines[0], `template="tool -u %n"`)
	assert.Contains(t, lines[0], `command="tool -u alice"`)
	assert.Contains(t, lines[0], `stderr="Invalid credentials (49)"`)
	assert.NotContains(t, lines[0], "n3w")
	assert.NotContains(t, lines[0], "0ld")
}

func TestChange_TimeoutLogsOnce(t *testing.T) {
	fe := &fakeExecutor{err: errors.New(errors.CodeExecTimeout, "password command did not finish in time", nil)}
	r, buf := newTestRunner("tool", fe)

	assert.Equal(t, ResultError, r.Save(context.Background(), alice, Credentials{}))
	lines := logLines(buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "level=ERROR")
	assert.Contains(t, lines[0], "exit_code=-1")
}

func TestChange_SpawnFailureNotLoggedAtInfo(t *testing.T) {
	fe := &fakeExecutor{err: errors.New(errors.CodeSpawnFailed, "failed to start password command", nil)}
	r, buf := newTestRunner("tool", fe)

	xe := r.Change(context.Background(), alice, Credentials{})
	require.NotNil(t, xe)
	assert.Equal(t, errors.CodeSpawnFailed, xe.Code)
	assert.Empty(t, logLines(buf))
}

func TestChange_Timeout(t *testing.T) {
	fe := &fakeExecutor{}
	r, _ := newTestRunner("tool", fe)
	require.Nil(t, r.Change(context.Background(), alice, Credentials{}))
	assert.InDelta(t, config.DefaultTimeout.Seconds(), fe.deadline.Seconds(), 1)

	fe = &fakeExecutor{}
	r, _ = newTestRunner("tool", fe)
	r.Timeout = 5 * time.Second
	require.Nil(t, r.Change(context.Background(), alice, Credentials{}))
	assert.InDelta(t, 5, fe.deadline.Seconds(), 1)
}

func TestChange_MalformedUsernamePassesThrough(t *testing.T) {
	fe := &fakeExecutor{}
	r, _ := newTestRunner("tool %login %name %dc", fe)
	require.Nil(t, r.Change(context.Background(), template.Identity{Username: "a@b@c"}, Credentials{}))
	require.Len(t, fe.calls, 1)
	assert.Equal(t, "tool a@b@c %name %dc", fe.calls[0].Command)
}
