package session

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// ChildSpec carries the resolved target identity and session command into
// the helper process. Everything here is already public information for a
// root-spawned child; the secret never crosses this boundary.
type ChildSpec struct {
	User  string
	UID   int
	GID   int
	Home  string
	Shell string
	Kind  Kind
	Run   string
}

// RunChild performs the privileged transition inside the helper process:
// session environment, working directory, privilege drop, verification,
// exec. On success it never returns; the session replaces this process.
// Any returned error means nothing of the session was executed.
func RunChild(spec ChildSpec) error {
	return defaultChildStage().run(spec)
}

// childStage isolates the irreversible system calls so tests can observe
// the ordering and the abort-on-failed-verification guarantee.
type childStage struct {
	setenv   func(key, value string) error
	chdir    func(dir string) error
	setgid   func(gid int) error
	setuid   func(uid int) error
	ids      func() (uid, euid, gid, egid int)
	lookPath func(file string) (string, error)
	exec     func(argv0 string, argv []string, envv []string) error
	environ  func() []string
}

func defaultChildStage() *childStage {
	return &childStage{
		setenv: os.Setenv,
		chdir:  os.Chdir,
		setgid: unix.Setgid,
		setuid: unix.Setuid,
		ids: func() (int, int, int, int) {
			return unix.Getuid(), unix.Geteuid(), unix.Getgid(), unix.Getegid()
		},
		lookPath: exec.LookPath,
		exec:     unix.Exec,
		environ:  os.Environ,
	}
}

func (c *childStage) run(spec ChildSpec) error {
	env := [][2]string{
		{"HOME", spec.Home},
		{"USER", spec.User},
		{"LOGNAME", spec.User},
		{"SHELL", spec.Shell},
	}
	switch spec.Kind {
	case Wayland:
		env = append(env, [2]string{"XDG_SESSION_TYPE", "wayland"}, [2]string{"WAYLAND_DISPLAY", "wayland-0"})
	default:
		env = append(env, [2]string{"XDG_SESSION_TYPE", "x11"}, [2]string{"DISPLAY", ":0"})
	}
	for _, kv := range env {
		if err := c.setenv(kv[0], kv[1]); err != nil {
			return fmt.Errorf("set %s: %w", kv[0], err)
		}
	}

	if err := c.chdir(spec.Home); err != nil {
		return fmt.Errorf("chdir %s: %w", spec.Home, err)
	}

	// Drop privileges, group before user. Reversed order could leave an
	// elevated group id active after the uid is gone.
	if err := c.setgid(spec.GID); err != nil {
		return fmt.Errorf("setgid %d: %w", spec.GID, err)
	}
	if err := c.setuid(spec.UID); err != nil {
		return fmt.Errorf("setuid %d: %w", spec.UID, err)
	}

	// Re-read all four ids and refuse to run anything unless every one of
	// them is the target's. A silently failed drop must never reach exec.
	uid, euid, gid, egid := c.ids()
	if uid != spec.UID || euid != spec.UID || gid != spec.GID || egid != spec.GID {
		return fmt.Errorf("privilege drop verification failed (uid=%d/%d gid=%d/%d, want uid=%d gid=%d)",
			uid, euid, gid, egid, spec.UID, spec.GID)
	}

	envv := c.environ()
	if spec.Kind == X11 {
		// Prefer the dedicated launcher; fall back to a direct shell
		// invocation when startx is absent or its exec fails.
		if path, err := c.lookPath("startx"); err == nil {
			_ = c.exec(path, []string{"startx", spec.Run}, envv)
		}
	}
	if err := c.exec("/bin/sh", []string{"sh", "-c", spec.Run}, envv); err != nil {
		return fmt.Errorf("exec session %q: %w", spec.Run, err)
	}
	return nil
}
