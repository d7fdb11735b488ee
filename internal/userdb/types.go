package userdb

// Well-known database locations on the host.
const (
	PasswdPath = "/etc/passwd"
	ShadowPath = "/etc/shadow"
)

type PasswdEntry struct {
	Name  string
	UID   int
	GID   int
	Gecos string
	Home  string
	Shell string
}

type ShadowEntry struct {
	Name       string
	Hash       string
	LastChange string
	Min        string
	Max        string
	Warn       string
	Inactive   string
	Expire     string
}
