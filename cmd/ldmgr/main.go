package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hnrobert/ldmgr/internal/auth"
	"github.com/hnrobert/ldmgr/internal/config"
	"github.com/hnrobert/ldmgr/internal/controller"
	"github.com/hnrobert/ldmgr/internal/logger"
	"github.com/hnrobert/ldmgr/internal/session"
	"github.com/hnrobert/ldmgr/internal/tui"
)

const (
	version = "1.0.0"
	logPath = "/var/log/ldmgr.log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ldmgr:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "ldmgr",
		Short:         "Minimal TUI login and session manager for Linux consoles",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to the configuration file")
	cmd.AddCommand(newHelperCmd())
	return cmd
}

func run(configPath string) error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("ldmgr must run as root")
	}

	// Load once up front just for the logging switch; the controller loads
	// again inside its own state machine.
	cfg, _ := config.Load(configPath)
	log := logger.New(logPath, cfg.EnableLogs)
	defer log.Close()

	ctrl := controller.New(controller.Options{
		UI:         tui.New(),
		Auth:       auth.New(auth.NewShadowProvider(), log),
		Launcher:   session.NewLauncher(log),
		Log:        log,
		ConfigPath: configPath,
		Version:    version,
	})
	defer ctrl.Cleanup()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		ctrl.RequestStop()
	}()

	return ctrl.Run()
}

// newHelperCmd is the hidden child stage of a session launch. The parent
// re-executes this binary with the resolved identity; this command drops
// privileges, verifies the drop, and execs the session.
func newHelperCmd() *cobra.Command {
	var spec session.ChildSpec
	var kind string
	cmd := &cobra.Command{
		Use:    session.HelperCommand,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Kind = session.ParseKind(kind)
			return session.RunChild(spec)
		},
	}
	f := cmd.Flags()
	f.StringVar(&spec.User, "user", "", "target user name")
	f.IntVar(&spec.UID, "uid", -1, "target uid")
	f.IntVar(&spec.GID, "gid", -1, "target gid")
	f.StringVar(&spec.Home, "home", "", "target home directory")
	f.StringVar(&spec.Shell, "shell", "/bin/sh", "target login shell")
	f.StringVar(&kind, "kind", "x11", "session kind, x11 or wayland")
	f.StringVar(&spec.Run, "run", "", "session command line")
	return cmd
}
