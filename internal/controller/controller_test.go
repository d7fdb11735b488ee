package controller

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hnrobert/ldmgr/internal/auth"
	"github.com/hnrobert/ldmgr/internal/config"
	"github.com/hnrobert/ldmgr/internal/logger"
	"github.com/hnrobert/ldmgr/internal/secure"
	"github.com/hnrobert/ldmgr/internal/session"
	"github.com/hnrobert/ldmgr/internal/userdb"
)

type cred struct{ user, pass string }

// scriptedUI plays back a fixed sequence of inputs and records everything
// shown to the user. When its credential script runs dry it requests a stop
// so a looping run terminates.
type scriptedUI struct {
	ctrl *Controller

	initErr error
	creds   []cred
	selects []int

	credCalls int
	drawCalls int
	errors    []string
	messages  []string
	closed    bool
}

func (u *scriptedUI) Init() error                      { return u.initErr }
func (u *scriptedUI) Close()                           { u.closed = true }
func (u *scriptedUI) DrawLoginScreen(host, ver string) { u.drawCalls++ }
func (u *scriptedUI) ShowError(m string)               { u.errors = append(u.errors, m) }
func (u *scriptedUI) ShowMessage(m string)             { u.messages = append(u.messages, m) }

func (u *scriptedUI) ReadCredentials(username, password *secure.Buffer) error {
	u.credCalls++
	if len(u.creds) == 0 {
		u.ctrl.RequestStop()
		return errors.New("input script exhausted")
	}
	c := u.creds[0]
	u.creds = u.creds[1:]
	username.Set(c.user)
	password.Set(c.pass)
	return nil
}

func (u *scriptedUI) SelectSession(sessions []session.Descriptor, defaultIdx int) int {
	if len(u.selects) == 0 {
		return defaultIdx
	}
	v := u.selects[0]
	u.selects = u.selects[1:]
	return v
}

type fakeAuthenticator struct {
	locked  bool
	results []error

	users     []string
	passwords []string
	resets    int
}

func (f *fakeAuthenticator) IsLockedOut(st *auth.State) bool { return f.locked }

func (f *fakeAuthenticator) Authenticate(username string, password []byte, cfg *config.Config, st *auth.State) error {
	f.users = append(f.users, username)
	f.passwords = append(f.passwords, string(password))
	if len(f.results) == 0 {
		return nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	if r != nil {
		st.FailedAttempts++
	}
	return r
}

func (f *fakeAuthenticator) ResetAttempts(st *auth.State) {
	f.resets++
	st.FailedAttempts = 0
}

type fakeLauncher struct {
	results []error
	starts  []string
}

func (f *fakeLauncher) Start(d session.Descriptor, username string) error {
	f.starts = append(f.starts, username+":"+d.Name)
	if len(f.results) == 0 {
		return nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r
}

var testSessions = []session.Descriptor{
	{Name: "Xfce Session", Exec: "startxfce4", Kind: session.X11},
	{Name: "Sway", Exec: "sway", Kind: session.Wayland},
}

func newTestController(t *testing.T, ui *scriptedUI, fa *fakeAuthenticator, fl *fakeLauncher, cfgYAML string) *Controller {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if cfgYAML != "" {
		require.NoError(t, os.WriteFile(path, []byte(cfgYAML), 0o644))
	}
	c := New(Options{
		UI:         ui,
		Auth:       fa,
		Launcher:   fl,
		Log:        logger.Discard(),
		ConfigPath: path,
		Version:    "test",
	})
	c.discover = func(*logger.Logger) ([]session.Descriptor, error) { return testSessions, nil }
	c.lookupUser = func(name string) (*userdb.PasswdEntry, error) {
		if name == "alice" {
			return &userdb.PasswdEntry{Name: "alice", UID: 1000, GID: 1000, Home: "/home/alice"}, nil
		}
		return nil, userdb.ErrUserNotFound
	}
	c.hostname = func() (string, error) { return "testhost", nil }
	ui.ctrl = c
	return c
}

func TestRunHappyPath(t *testing.T) {
	ui := &scriptedUI{creds: []cred{{"alice", "pw"}}, selects: []int{1}}
	fa := &fakeAuthenticator{}
	fl := &fakeLauncher{}
	c := newTestController(t, ui, fa, fl, "")

	require.NoError(t, c.Run())
	c.Cleanup()

	assert.Equal(t, 1, ui.credCalls)
	assert.Equal(t, []string{"alice"}, fa.users)
	assert.Equal(t, []string{"pw"}, fa.passwords)
	assert.Equal(t, []string{"alice:Sway"}, fl.starts)
	assert.Equal(t, StateExit, c.ctx.State)
	assert.True(t, ui.closed)
}

func TestRunWipesPasswordAfterAuthentication(t *testing.T) {
	ui := &scriptedUI{creds: []cred{{"alice", "hunter2"}}}
	fa := &fakeAuthenticator{}
	c := newTestController(t, ui, fa, &fakeLauncher{}, "")

	require.NoError(t, c.Run())
	assert.True(t, c.ctx.Password.Empty(), "secret must not outlive the attempt")

	// Failure path wipes too.
	ui = &scriptedUI{creds: []cred{{"alice", "wrong"}}}
	fa = &fakeAuthenticator{results: []error{auth.ErrInvalidCredentials}}
	c = newTestController(t, ui, fa, &fakeLauncher{}, "")
	_ = c.Run()
	assert.True(t, c.ctx.Password.Empty())
}

func TestRunAuthFailureLoopsBackThenSucceeds(t *testing.T) {
	ui := &scriptedUI{creds: []cred{{"alice", "wrong"}, {"alice", "pw"}}}
	fa := &fakeAuthenticator{results: []error{auth.ErrInvalidCredentials, nil}}
	fl := &fakeLauncher{}
	c := newTestController(t, ui, fa, fl, "")

	require.NoError(t, c.Run())
	assert.Equal(t, 2, ui.credCalls)
	assert.GreaterOrEqual(t, ui.drawCalls, 2)
	assert.NotEmpty(t, ui.errors)
	assert.Len(t, fl.starts, 1)
}

func TestRunEmptyCredentialFieldsLoopBack(t *testing.T) {
	ui := &scriptedUI{creds: []cred{{"", "pw"}, {"alice", ""}, {"alice", "pw"}}}
	fa := &fakeAuthenticator{}
	fl := &fakeLauncher{}
	c := newTestController(t, ui, fa, fl, "")

	require.NoError(t, c.Run())
	assert.Equal(t, 3, ui.credCalls)
	assert.Contains(t, ui.errors, "Username cannot be empty.")
	assert.Contains(t, ui.errors, "Password cannot be empty.")
	assert.Len(t, fa.users, 1, "empty input never reaches the authenticator")
}

func TestRunLockedOutSkipsAuthenticator(t *testing.T) {
	ui := &scriptedUI{creds: []cred{{"alice", "pw"}}}
	fa := &fakeAuthenticator{locked: true}
	c := newTestController(t, ui, fa, &fakeLauncher{}, "")

	_ = c.Run()
	assert.Empty(t, fa.users)
	assert.Contains(t, ui.errors, auth.HumanAuthError(auth.ErrLockedOut))
	assert.True(t, c.ctx.Password.Empty())
}

func TestRunSelectionCancelledLoopsBack(t *testing.T) {
	ui := &scriptedUI{
		creds:   []cred{{"alice", "pw"}, {"alice", "pw"}},
		selects: []int{-1, 0},
	}
	fa := &fakeAuthenticator{}
	fl := &fakeLauncher{}
	c := newTestController(t, ui, fa, fl, "")

	require.NoError(t, c.Run())
	assert.Equal(t, 2, ui.credCalls)
	assert.Len(t, fa.users, 1)
	assert.Equal(t, []string{"alice:Xfce Session"}, fl.starts)
}

func TestRunLauncherFailureLoopsBack(t *testing.T) {
	ui := &scriptedUI{creds: []cred{{"alice", "pw"}, {"alice", "pw"}}}
	fa := &fakeAuthenticator{}
	fl := &fakeLauncher{results: []error{session.ErrLaunch, nil}}
	c := newTestController(t, ui, fa, fl, "")

	require.NoError(t, c.Run())
	assert.Len(t, fl.starts, 2)
	assert.Contains(t, ui.errors, "Failed to start session. Please try again.")
}

func TestRunInitFailureIsFatal(t *testing.T) {
	ui := &scriptedUI{initErr: errors.New("no terminal")}
	c := newTestController(t, ui, &fakeAuthenticator{}, &fakeLauncher{}, "")

	err := c.Run()
	assert.ErrorIs(t, err, ErrSetup)
	assert.Equal(t, StateExit, c.ctx.State)
}

func TestRunNoSessionsIsFatal(t *testing.T) {
	ui := &scriptedUI{}
	c := newTestController(t, ui, &fakeAuthenticator{}, &fakeLauncher{}, "")
	c.discover = func(*logger.Logger) ([]session.Descriptor, error) {
		return nil, session.ErrNoSessions
	}

	err := c.Run()
	assert.ErrorIs(t, err, ErrSetup)
	assert.NotEmpty(t, ui.errors)
}

func TestRunAutologinSkipsLoginScreen(t *testing.T) {
	ui := &scriptedUI{}
	fa := &fakeAuthenticator{}
	fl := &fakeLauncher{}
	c := newTestController(t, ui, fa, fl, `
autologin_enabled: true
autologin_user: alice
default_session: sway
`)

	require.NoError(t, c.Run())
	assert.Equal(t, 0, ui.credCalls, "autologin must not prompt for credentials")
	assert.Empty(t, fa.users, "autologin bypasses authentication")
	assert.Equal(t, []string{"alice:Sway"}, fl.starts)
}

func TestRunAutologinUnknownUserFallsBack(t *testing.T) {
	ui := &scriptedUI{creds: []cred{{"alice", "pw"}}}
	fa := &fakeAuthenticator{}
	fl := &fakeLauncher{}
	c := newTestController(t, ui, fa, fl, `
autologin_enabled: true
autologin_user: mallory
`)

	require.NoError(t, c.Run())
	assert.Equal(t, 1, ui.credCalls)
	assert.Contains(t, ui.errors, "Autologin user not found. Please log in manually.")
	assert.Equal(t, []string{"alice"}, fa.users)
}

func TestRunStopRequestEndsLoop(t *testing.T) {
	ui := &scriptedUI{}
	c := newTestController(t, ui, &fakeAuthenticator{}, &fakeLauncher{}, "")

	// The exhausted input script requests a stop; the loop must honor it
	// rather than prompting forever.
	_ = c.Run()
	assert.Equal(t, 1, ui.credCalls)
	assert.NotEqual(t, StateExit, c.ctx.State)
}

func TestFindDefaultSession(t *testing.T) {
	c := newTestController(t, &scriptedUI{}, &fakeAuthenticator{}, &fakeLauncher{}, "")
	c.ctx.Sessions = testSessions

	c.ctx.Config.DefaultSession = "sway"
	assert.Equal(t, 1, c.findDefaultSession())

	c.ctx.Config.DefaultSession = "xfce session"
	assert.Equal(t, 0, c.findDefaultSession())

	c.ctx.Config.DefaultSession = "gnome"
	assert.Equal(t, 0, c.findDefaultSession(), "no match falls back to the first entry")

	c.ctx.Sessions = nil
	assert.Equal(t, -1, c.findDefaultSession())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "exit", StateExit.String())
	assert.Equal(t, "state(99)", State(99).String())
}
