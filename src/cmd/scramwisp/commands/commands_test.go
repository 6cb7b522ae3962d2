// FILE: src/cmd/scramwisp/commands/commands_test.go
package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scramwisp/src/internal/config"
	"scramwisp/src/internal/credstore"
	"scramwisp/src/internal/scram"
)

func newTestRouter() (*CommandRouter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return newCommandRouter(&out, &errOut), &out, &errOut
}

func noPrompt(string) (string, error) {
	panic("unexpected password prompt")
}

func TestRouter(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "no command shows help", args: []string{"scramwisp"}, want: "Commands:"},
		{name: "help lists commands", args: []string{"scramwisp", "help"}, want: "vector"},
		{name: "command help", args: []string{"scramwisp", "help", "auth"}, want: "Auth Command"},
		{name: "help flag", args: []string{"scramwisp", "login", "--help"}, want: "Login Command"},
		{name: "version flag", args: []string{"scramwisp", "-v"}, want: "scramwisp"},
		{name: "unknown command", args: []string{"scramwisp", "frobnicate"}, wantErr: "unknown command: frobnicate"},
		{name: "unknown help topic", args: []string{"scramwisp", "help", "frobnicate"}, wantErr: "unknown command"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, out, _ := newTestRouter()
			err := router.Route(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tc.want)
		})
	}
}

func TestVectorCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := &VectorCommand{output: &out}

	require.NoError(t, cmd.Execute(nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, "C: n,,n=user,r=fyko+d2lbbFgONRv9qkxdawL", lines[0])
	assert.Equal(t, "S: r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92,i=4096", lines[1])
	assert.Equal(t, "C: "+vectorClientFinal, lines[2])
	assert.Equal(t, "S: "+vectorServerFinal, lines[3])
	assert.Contains(t, out.String(), "client: authenticated, server: completed")

	assert.Error(t, cmd.Execute([]string{"extra"}))
}

func TestAuthCommand(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		format  string
		wantErr string
	}{
		{name: "toml", args: []string{"-u", "alice", "-p", "secret"}, format: "toml"},
		{name: "yaml long flags", args: []string{"--user=alice", "--password=secret", "--format=yaml"}, format: "yaml"},
		{name: "more iterations", args: []string{"-u", "alice", "-p", "secret", "-i", "5000"}, format: "toml"},
		{name: "missing user", args: []string{"-p", "secret"}, wantErr: "username required"},
		{name: "too few iterations", args: []string{"-u", "alice", "-p", "secret", "-i", "100"}, wantErr: "below minimum"},
		{name: "bad format", args: []string{"-u", "alice", "-p", "secret", "-f", "json"}, wantErr: "invalid format"},
		{name: "stray argument", args: []string{"-u", "alice", "extra"}, wantErr: "unexpected argument"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			cmd := &AuthCommand{output: &out, errOut: &errOut, prompt: noPrompt}

			err := cmd.Execute(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)

			// Strip the comment header before parsing the snippet
			var body []string
			for _, line := range strings.Split(out.String(), "\n") {
				if !strings.HasPrefix(line, "#") {
					body = append(body, line)
				}
			}
			users, err := credstore.Import(tc.format, []byte(strings.Join(body, "\n")))
			require.NoError(t, err)
			require.Len(t, users, 1)

			cred, err := credstore.FromUserConfig(users[0])
			require.NoError(t, err)
			assert.Equal(t, "alice", cred.Username)

			expected, err := scram.DeriveCredential("alice", "secret", cred.Salt, cred.Iterations)
			require.NoError(t, err)
			assert.Equal(t, expected.StoredKey, cred.StoredKey)
			assert.Equal(t, expected.ServerKey, cred.ServerKey)
		})
	}
}

func TestReadPassword(t *testing.T) {
	answers := func(values ...string) passwordPrompt {
		return func(string) (string, error) {
			v := values[0]
			values = values[1:]
			return v, nil
		}
	}

	got, err := readPassword(noPrompt, "given", true)
	require.NoError(t, err)
	assert.Equal(t, "given", got)

	got, err = readPassword(answers("pw", "pw"), "", true)
	require.NoError(t, err)
	assert.Equal(t, "pw", got)

	_, err = readPassword(answers("pw", "other"), "", true)
	assert.ErrorContains(t, err, "don't match")

	got, err = readPassword(answers("once"), "", false)
	require.NoError(t, err)
	assert.Equal(t, "once", got)
}

func newCommandConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Output = "none"
	cfg.Store.Type = "bolt"
	cfg.Store.Path = filepath.Join(t.TempDir(), "users.db")
	return cfg
}

func TestRegisterThenLogin(t *testing.T) {
	cfg := newCommandConfig(t)

	var out, errOut bytes.Buffer
	register := &RegisterCommand{output: &out, errOut: &errOut, prompt: noPrompt}
	require.NoError(t, register.register(context.Background(), cfg, "alice", "secret"))
	assert.Contains(t, out.String(), `Registered "alice" in bolt store`)

	out.Reset()
	login := &LoginCommand{output: &out, errOut: &errOut, prompt: noPrompt}
	require.NoError(t, login.login(context.Background(), cfg, log.NewLogger(), "alice", "secret"))
	assert.Contains(t, out.String(), `Authenticated "alice"`)
	assert.Contains(t, out.String(), "Ticket:")
	assert.Contains(t, out.String(), "Active:  1 session(s), 0 pending handshake(s)")

	err := login.login(context.Background(), cfg, log.NewLogger(), "alice", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, scram.ErrServerRejected)
}

func TestLogin_ConfiguredUsers(t *testing.T) {
	cfg := config.Default()

	cred, err := scram.DeriveCredential("bob", "hunter2", []byte("0123456789abcdef"), 4096)
	require.NoError(t, err)
	cfg.UpsertUser(credstore.ToUserConfig(cred))

	var out, errOut bytes.Buffer
	login := &LoginCommand{output: &out, errOut: &errOut, prompt: noPrompt}
	require.NoError(t, login.login(context.Background(), cfg, log.NewLogger(), "bob", "hunter2"))
	assert.Contains(t, out.String(), `Authenticated "bob"`)

	err = login.login(context.Background(), cfg, log.NewLogger(), "mallory", "hunter2")
	assert.ErrorIs(t, err, scram.ErrServerRejected)
}

func TestUsersCommand(t *testing.T) {
	store := credstore.NewMemoryStore()
	for _, name := range []string{"carol", "alice"} {
		cred, err := scram.DeriveCredential(name, "pw", []byte("saltsaltsaltsalt"), 4096)
		require.NoError(t, err)
		require.NoError(t, store.Save(cred))
	}

	var out, errOut bytes.Buffer
	cmd := &UsersCommand{output: &out, errOut: &errOut}

	require.NoError(t, cmd.run(store, "list", nil, "toml"))
	assert.Equal(t, "alice\ncarol\n", out.String())

	out.Reset()
	require.NoError(t, cmd.run(store, "export", []string{"alice"}, "yaml"))
	users, err := credstore.Import("yaml", out.Bytes())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	out.Reset()
	require.NoError(t, cmd.run(store, "remove", []string{"carol"}, "toml"))
	assert.Equal(t, []string{"alice"}, store.Usernames())

	assert.ErrorIs(t, cmd.run(store, "remove", []string{"carol"}, "toml"), scram.ErrUnknownUser)
	assert.Error(t, cmd.run(store, "remove", nil, "toml"))
	assert.Error(t, cmd.run(store, "rename", nil, "toml"))
}

func TestSplitOverrides(t *testing.T) {
	flags, overrides := splitOverrides([]string{"-u", "alice", "--", "--store.type=bolt"})
	assert.Equal(t, []string{"-u", "alice"}, flags)
	assert.Equal(t, []string{"--store.type=bolt"}, overrides)

	flags, overrides = splitOverrides([]string{"-u", "alice"})
	assert.Equal(t, []string{"-u", "alice"}, flags)
	assert.Nil(t, overrides)
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, int(log.LevelWarn), level)

	_, err = parseLogLevel("verbose")
	assert.Error(t, err)
}
