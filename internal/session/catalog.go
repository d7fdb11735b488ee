package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hnrobert/ldmgr/internal/logger"
)

// Well-known descriptor locations, one per protocol.
const (
	X11SessionDir     = "/usr/share/xsessions"
	WaylandSessionDir = "/usr/share/wayland-sessions"
)

var ErrNoSessions = errors.New("no sessions discovered")

// Discover builds the session catalog from the two fixed locations, X11
// entries first. Zero usable descriptors is an error; a missing directory
// is not.
func Discover(log *logger.Logger) ([]Descriptor, error) {
	return DiscoverDirs(X11SessionDir, WaylandSessionDir, log)
}

func DiscoverDirs(x11Dir, waylandDir string, log *logger.Logger) ([]Descriptor, error) {
	var list []Descriptor
	list = scanDir(list, x11Dir, X11, log)
	list = scanDir(list, waylandDir, Wayland, log)
	if len(list) == 0 {
		log.Error("no sessions discovered")
		return nil, ErrNoSessions
	}
	log.Info("discovered sessions", "count", len(list))
	return list, nil
}

func scanDir(list []Descriptor, dir string, kind Kind, log *logger.Logger) []Descriptor {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Absent directory contributes nothing; hosts often install only
		// one of the two protocols.
		log.Debug("session directory not readable", "dir", dir, "error", err)
		return list
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".desktop") {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		f, err := os.Open(path)
		if err != nil {
			log.Warn("failed to open desktop file", "path", path, "error", err)
			continue
		}
		name, exec, ok, err := parseDesktop(f)
		_ = f.Close()
		if err != nil {
			log.Warn("failed to read desktop file", "path", path, "error", err)
			continue
		}
		if !ok {
			log.Warn("incomplete desktop file", "path", path)
			continue
		}
		log.Debug("discovered session", "name", name, "kind", kind.String())
		list = append(list, Descriptor{Name: name, Exec: exec, Kind: kind})
	}
	return list
}
