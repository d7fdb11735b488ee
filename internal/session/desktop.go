package session

import (
	"bufio"
	"io"
	"strings"
)

// parseDesktop extracts the Name= and Exec= fields from a .desktop record.
// The first occurrence of each key wins, other keys are ignored, and a
// value that is empty or over the field bound counts as absent. Both
// fields must be present for the record to be usable.
func parseDesktop(r io.Reader) (name, exec string, ok bool, err error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 1024*1024)
	for s.Scan() {
		line := s.Text()
		if v, found := strings.CutPrefix(line, "Name="); found && name == "" {
			if len(v) > 0 && len(v) <= MaxNameLen {
				name = v
			}
		} else if v, found := strings.CutPrefix(line, "Exec="); found && exec == "" {
			if len(v) > 0 && len(v) <= MaxExecLen {
				exec = v
			}
		}
		if name != "" && exec != "" {
			break
		}
	}
	if err := s.Err(); err != nil {
		return "", "", false, err
	}
	return name, exec, name != "" && exec != "", nil
}
