package userdb

import (
	"bytes"
	"errors"
	"os"
)

var ErrUserNotFound = errors.New("user not found")

type PasswdFile struct {
	entries []PasswdEntry
}

func LoadPasswd(path string) (*PasswdFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePasswd(b)
}

func ParsePasswd(b []byte) (*PasswdFile, error) {
	lines, err := readLines(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	f := &PasswdFile{}
	for _, line := range lines {
		if skippable(line) {
			continue
		}
		parts := parseColonLine(line)
		if len(parts) < 7 {
			continue
		}
		uid, ok := atoiField(parts[2])
		if !ok {
			continue
		}
		gid, ok := atoiField(parts[3])
		if !ok {
			continue
		}
		f.entries = append(f.entries, PasswdEntry{
			Name:  parts[0],
			UID:   uid,
			GID:   gid,
			Gecos: parts[4],
			Home:  parts[5],
			Shell: parts[6],
		})
	}
	return f, nil
}

func (f *PasswdFile) Find(name string) *PasswdEntry {
	for i := range f.entries {
		if f.entries[i].Name == name {
			return &f.entries[i]
		}
	}
	return nil
}

// Lookup resolves one account straight from the database file.
func Lookup(path, name string) (*PasswdEntry, error) {
	f, err := LoadPasswd(path)
	if err != nil {
		return nil, err
	}
	e := f.Find(name)
	if e == nil {
		return nil, ErrUserNotFound
	}
	return e, nil
}
