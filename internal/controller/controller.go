package controller

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/hnrobert/ldmgr/internal/auth"
	"github.com/hnrobert/ldmgr/internal/config"
	"github.com/hnrobert/ldmgr/internal/logger"
	"github.com/hnrobert/ldmgr/internal/secure"
	"github.com/hnrobert/ldmgr/internal/session"
	"github.com/hnrobert/ldmgr/internal/userdb"
)

var (
	ErrSetup        = errors.New("setup failed")
	ErrUnknownState = errors.New("unknown state")
)

// State is a position in the login flow machine.
type State int

const (
	StateInit State = iota
	StateLoadConfig
	StateCheckAutologin
	StateShowLogin
	StateGetCredentials
	StateSelectSession
	StateAuthenticate
	StateStartSession
	StateExit
)

var stateNames = map[State]string{
	StateInit:           "init",
	StateLoadConfig:     "load-config",
	StateCheckAutologin: "check-autologin",
	StateShowLogin:      "show-login",
	StateGetCredentials: "get-credentials",
	StateSelectSession:  "select-session",
	StateAuthenticate:   "authenticate",
	StateStartSession:   "start-session",
	StateExit:           "exit",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// UI is the terminal collaborator the controller drives.
type UI interface {
	Init() error
	Close()
	DrawLoginScreen(hostname, version string)
	ReadCredentials(username, password *secure.Buffer) error
	SelectSession(sessions []session.Descriptor, defaultIdx int) int
	ShowError(message string)
	ShowMessage(message string)
}

// Authenticator is the credential/lockout collaborator.
type Authenticator interface {
	IsLockedOut(st *auth.State) bool
	Authenticate(username string, password []byte, cfg *config.Config, st *auth.State) error
	ResetAttempts(st *auth.State)
}

// Launcher starts the chosen session as the authenticated user.
type Launcher interface {
	Start(d session.Descriptor, username string) error
}

// Context is the run aggregate. The controller owns it exclusively for the
// process lifetime; nothing else mutates it.
type Context struct {
	State     State
	Config    config.Config
	AuthState auth.State
	Sessions  []session.Descriptor
	Username  secure.Buffer
	Password  secure.Buffer
	Selected  int // index into Sessions, -1 = none
	Running   bool
}

// Controller sequences config loading, session discovery, credential
// collection, authentication and session launch as a finite-state machine.
type Controller struct {
	ui       UI
	auth     Authenticator
	launcher Launcher
	log      *logger.Logger

	configPath string
	version    string

	// Injection points for tests.
	discover   func(*logger.Logger) ([]session.Descriptor, error)
	lookupUser func(name string) (*userdb.PasswdEntry, error)
	hostname   func() (string, error)

	stop atomic.Bool
	ctx  Context
}

type Options struct {
	UI         UI
	Auth       Authenticator
	Launcher   Launcher
	Log        *logger.Logger
	ConfigPath string
	Version    string
}

func New(opts Options) *Controller {
	c := &Controller{
		ui:         opts.UI,
		auth:       opts.Auth,
		launcher:   opts.Launcher,
		log:        opts.Log,
		configPath: opts.ConfigPath,
		version:    opts.Version,
		discover:   session.Discover,
		lookupUser: func(name string) (*userdb.PasswdEntry, error) {
			return userdb.Lookup(userdb.PasswdPath, name)
		},
		hostname: os.Hostname,
	}
	c.ctx = Context{State: StateInit, Selected: -1, Running: true}
	return c
}

// RequestStop flags a graceful shutdown. The flag is observed between state
// handlers only; it never interrupts one mid-flight.
func (c *Controller) RequestStop() {
	c.stop.Store(true)
}

// Run drives the state machine until StateExit. Only Init and LoadConfig
// failures terminate the run with an error; everything else loops back to
// the login screen.
func (c *Controller) Run() error {
	var result error
	for c.ctx.Running && c.ctx.State != StateExit {
		if c.stop.Load() {
			c.log.Info("shutdown requested, leaving state loop", "state", c.ctx.State.String())
			break
		}

		switch c.ctx.State {
		case StateInit:
			result = c.handleInit()
		case StateLoadConfig:
			result = c.handleLoadConfig()
		case StateCheckAutologin:
			result = c.handleCheckAutologin()
		case StateShowLogin:
			result = c.handleShowLogin()
		case StateGetCredentials:
			result = c.handleGetCredentials()
		case StateSelectSession:
			result = c.handleSelectSession()
		case StateAuthenticate:
			result = c.handleAuthenticate()
		case StateStartSession:
			result = c.handleStartSession()
		default:
			c.log.Error("unknown state", "state", int(c.ctx.State))
			c.ctx.State = StateExit
			result = fmt.Errorf("%w: %d", ErrUnknownState, int(c.ctx.State))
		}

		if result != nil && c.ctx.State == StateExit {
			break
		}
	}
	return result
}

// Cleanup wipes credentials and releases the catalog and the UI. Safe to
// call whether or not Run completed.
func (c *Controller) Cleanup() {
	c.ctx.Password.Wipe()
	c.ctx.Username.Wipe()
	c.ctx.Sessions = nil
	if c.ui != nil {
		c.ui.Close()
	}
}
