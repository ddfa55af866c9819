// Package human provides types that parse and format human-friendly
// representations of file system paths and byte counts.
package human

import (
	"encoding"
	"flag"
	"os"
	"path/filepath"
	"strings"
)

// Path represents a path on the file system.
//
// The type interprets the special prefix "~/" as the home directory of the
// user running the program. Expansion happens in Resolve rather than at parse
// time, so configuration files and command line flags round-trip unchanged.
type Path string

func (p Path) String() string {
	return string(p)
}

func (p *Path) Set(s string) error {
	*p = Path(s)
	return nil
}

// Resolve returns the path with the "~/" prefix expanded.
func (p Path) Resolve() (string, error) {
	s := string(p)
	if s == "~" || strings.HasPrefix(s, "~"+string(os.PathSeparator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		s = filepath.Join(home, s[1:])
	}
	return s, nil
}

func (p *Path) UnmarshalText(b []byte) error {
	return p.Set(string(b))
}

func (p Path) MarshalText() ([]byte, error) {
	return []byte(p), nil
}

var (
	_ encoding.TextMarshaler   = Path("")
	_ encoding.TextUnmarshaler = (*Path)(nil)
	_ flag.Value               = (*Path)(nil)
)
