package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hnrobert/ldmgr/internal/logger"
	"github.com/hnrobert/ldmgr/internal/userdb"
)

var ErrLaunch = errors.New("session launch failed")

// HelperCommand is the hidden subcommand this binary exposes for the child
// stage of a launch.
const HelperCommand = "session-helper"

// Launcher starts a chosen session as the authenticated user. The privileged
// transition itself runs in a child process (this binary re-executed as
// HelperCommand) so that the manager keeps its own credentials.
type Launcher struct {
	log        *logger.Logger
	passwdPath string

	// spawn is swapped out in tests.
	spawn func(spec ChildSpec) error
}

func NewLauncher(log *logger.Logger) *Launcher {
	l := &Launcher{log: log, passwdPath: userdb.PasswdPath}
	l.spawn = l.spawnHelper
	return l
}

// Start resolves the target account, runs the child stage, and blocks until
// it terminates. Only a child exit status of 0 counts as success; every
// other outcome, including termination by signal, is a launch failure.
func (l *Launcher) Start(d Descriptor, username string) error {
	if username == "" {
		return fmt.Errorf("%w: empty username", ErrLaunch)
	}
	if d.Name == "" || d.Exec == "" {
		return fmt.Errorf("%w: empty session name or command", ErrLaunch)
	}

	pw, err := userdb.Lookup(l.passwdPath, username)
	if err != nil {
		l.log.Error("failed to resolve user", "user", username, "error", err)
		return fmt.Errorf("%w: resolve %s: %v", ErrLaunch, username, err)
	}
	if pw.Home == "" {
		l.log.Error("user has no home directory", "user", username)
		return fmt.Errorf("%w: user %s has no home directory", ErrLaunch, username)
	}
	shell := pw.Shell
	if shell == "" {
		l.log.Warn("user has no shell, using /bin/sh", "user", username)
		shell = "/bin/sh"
	}

	l.log.Info("starting session",
		"kind", d.Kind.String(), "session", d.Name, "user", username)

	spec := ChildSpec{
		User:  username,
		UID:   pw.UID,
		GID:   pw.GID,
		Home:  pw.Home,
		Shell: shell,
		Kind:  d.Kind,
		Run:   d.Exec,
	}
	if err := l.spawn(spec); err != nil {
		return err
	}
	l.log.Info("session exited cleanly", "session", d.Name, "user", username)
	return nil
}

func (l *Launcher) spawnHelper(spec ChildSpec) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("%w: locate executable: %v", ErrLaunch, err)
	}
	cmd := exec.Command(self, HelperCommand,
		"--user", spec.User,
		"--uid", strconv.Itoa(spec.UID),
		"--gid", strconv.Itoa(spec.GID),
		"--home", spec.Home,
		"--shell", spec.Shell,
		"--kind", spec.Kind.String(),
		"--run", spec.Run,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err = cmd.Run()
	if err == nil {
		return nil
	}
	detail := strings.TrimSpace(stderr.String())
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			l.log.Warn("session terminated by signal", "status", exitErr.String())
			return fmt.Errorf("%w: terminated by signal", ErrLaunch)
		}
		l.log.Error("session exited with failure", "code", code, "stderr", detail)
		return fmt.Errorf("%w: exit status %d", ErrLaunch, code)
	}
	l.log.Error("failed to run session helper", "error", err)
	return fmt.Errorf("%w: %v", ErrLaunch, err)
}
