package session

// Kind is the display protocol a session speaks.
type Kind int

const (
	X11 Kind = iota
	Wayland
)

func (k Kind) String() string {
	if k == Wayland {
		return "wayland"
	}
	return "x11"
}

// ParseKind is the inverse of String; unknown values default to X11.
func ParseKind(s string) Kind {
	if s == "wayland" {
		return Wayland
	}
	return X11
}

// Field bounds carried over from the descriptor contract: longer values are
// treated as absent.
const (
	MaxNameLen = 255
	MaxExecLen = 511
)

// Descriptor names a launchable graphical session. Immutable once
// discovered.
type Descriptor struct {
	Name string
	Exec string
	Kind Kind
}
