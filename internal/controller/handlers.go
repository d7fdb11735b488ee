package controller

import (
	"fmt"
	"strings"

	"github.com/hnrobert/ldmgr/internal/auth"
	"github.com/hnrobert/ldmgr/internal/config"
	"github.com/hnrobert/ldmgr/internal/secure"
)

func (c *Controller) handleInit() error {
	c.log.Info("initializing", "version", c.version)
	if err := c.ui.Init(); err != nil {
		c.log.Error("failed to initialize terminal ui", "error", err)
		c.ctx.State = StateExit
		return fmt.Errorf("%w: terminal ui: %v", ErrSetup, err)
	}
	c.ctx.State = StateLoadConfig
	return nil
}

func (c *Controller) handleLoadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		c.log.Warn("config load degraded, using defaults where needed",
			"path", c.configPath, "error", err)
	}
	c.ctx.Config = cfg

	sessions, err := c.discover(c.log)
	if err != nil {
		c.ui.ShowError("No sessions available. Install a desktop environment.")
		c.ctx.State = StateExit
		return fmt.Errorf("%w: %v", ErrSetup, err)
	}
	c.ctx.Sessions = sessions
	c.ctx.State = StateCheckAutologin
	return nil
}

func (c *Controller) handleCheckAutologin() error {
	cfg := &c.ctx.Config
	if !cfg.AutologinEnabled || cfg.AutologinUser == "" {
		c.ctx.State = StateShowLogin
		return nil
	}

	if len(cfg.AutologinUser) > secure.MaxFieldLen {
		c.log.Warn("autologin user name too long, falling back to login screen")
		c.ui.ShowError("Autologin misconfigured. Please log in manually.")
		c.ctx.State = StateShowLogin
		return nil
	}
	if _, err := c.lookupUser(cfg.AutologinUser); err != nil {
		c.log.Warn("autologin user does not exist", "user", cfg.AutologinUser, "error", err)
		c.ui.ShowError("Autologin user not found. Please log in manually.")
		c.ctx.State = StateShowLogin
		return nil
	}

	idx := c.findDefaultSession()
	if idx < 0 || idx >= len(c.ctx.Sessions) {
		c.log.Warn("autologin session not available", "session", cfg.DefaultSession)
		c.ui.ShowError("Autologin session not found. Please log in manually.")
		c.ctx.State = StateShowLogin
		return nil
	}

	c.ctx.Username.Set(cfg.AutologinUser)
	c.ctx.Selected = idx
	c.log.Info("autologin", "user", cfg.AutologinUser, "session", c.ctx.Sessions[idx].Name)
	c.ctx.State = StateStartSession
	return nil
}

func (c *Controller) handleShowLogin() error {
	host, err := c.hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	c.ui.DrawLoginScreen(host, c.version)
	c.ctx.State = StateGetCredentials
	return nil
}

func (c *Controller) handleGetCredentials() error {
	if err := c.ui.ReadCredentials(&c.ctx.Username, &c.ctx.Password); err != nil {
		c.log.Error("failed to read credentials", "error", err)
		c.ui.ShowError("Failed to read credentials. Please try again.")
		c.ctx.State = StateShowLogin
		return err
	}
	if c.ctx.Username.Empty() {
		c.ui.ShowError("Username cannot be empty.")
		c.ctx.State = StateShowLogin
		return nil
	}
	if c.ctx.Password.Empty() {
		c.ui.ShowError("Password cannot be empty.")
		c.ctx.State = StateShowLogin
		return nil
	}
	c.ctx.State = StateSelectSession
	return nil
}

func (c *Controller) handleSelectSession() error {
	idx := c.ui.SelectSession(c.ctx.Sessions, c.findDefaultSession())
	if idx < 0 || idx >= len(c.ctx.Sessions) {
		c.log.Info("session selection cancelled")
		c.ctx.Password.Wipe()
		c.ctx.State = StateShowLogin
		return nil
	}
	c.ctx.Selected = idx
	c.log.Info("session selected", "session", c.ctx.Sessions[idx].Name)
	c.ctx.State = StateAuthenticate
	return nil
}

func (c *Controller) handleAuthenticate() error {
	if c.auth.IsLockedOut(&c.ctx.AuthState) {
		c.log.Warn("authentication attempt while locked out", "user", c.ctx.Username.String())
		c.ui.ShowError(auth.HumanAuthError(auth.ErrLockedOut))
		c.ctx.Password.Wipe()
		c.ctx.State = StateShowLogin
		return nil
	}

	err := c.auth.Authenticate(
		c.ctx.Username.String(), c.ctx.Password.Bytes(), &c.ctx.Config, &c.ctx.AuthState)
	// The secret has served its purpose whatever the outcome.
	c.ctx.Password.Wipe()

	if err != nil {
		c.log.Warn("authentication failed",
			"user", c.ctx.Username.String(),
			"attempts", c.ctx.AuthState.FailedAttempts,
			"max", c.ctx.Config.MaxAttempts)
		c.ui.ShowError(fmt.Sprintf("%s (attempt %d of %d)",
			auth.HumanAuthError(err), c.ctx.AuthState.FailedAttempts, c.ctx.Config.MaxAttempts))
		c.ctx.State = StateShowLogin
		return nil
	}

	c.log.Info("authentication succeeded", "user", c.ctx.Username.String())
	c.auth.ResetAttempts(&c.ctx.AuthState)
	c.ctx.State = StateStartSession
	return nil
}

func (c *Controller) handleStartSession() error {
	if c.ctx.Selected < 0 || c.ctx.Selected >= len(c.ctx.Sessions) {
		c.log.Error("no session selected at start", "selected", c.ctx.Selected)
		c.ui.ShowError("No session selected.")
		c.ctx.State = StateShowLogin
		return nil
	}
	d := c.ctx.Sessions[c.ctx.Selected]
	c.ui.ShowMessage(fmt.Sprintf("Starting %s...", d.Name))

	if err := c.launcher.Start(d, c.ctx.Username.String()); err != nil {
		c.log.Error("session start failed", "session", d.Name, "error", err)
		c.ui.ShowError("Failed to start session. Please try again.")
		c.ctx.State = StateShowLogin
		return err
	}

	c.log.Info("session completed", "session", d.Name, "user", c.ctx.Username.String())
	c.ctx.State = StateExit
	return nil
}

// findDefaultSession maps the configured default session name onto the
// catalog, case-insensitively on the name. First entry when nothing matches.
func (c *Controller) findDefaultSession() int {
	want := c.ctx.Config.DefaultSession
	for i, s := range c.ctx.Sessions {
		if strings.EqualFold(s.Name, want) {
			return i
		}
	}
	if len(c.ctx.Sessions) > 0 {
		return 0
	}
	return -1
}
