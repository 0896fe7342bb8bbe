package profile

import (
	"errors"
	"fmt"
	"strings"
)

// MaxNameLen bounds a profile name; it becomes a directory and part of the
// control socket path, which Unix limits to about 104 bytes.
const MaxNameLen = 64

// ErrInvalidName wraps every profile name rejection.
var ErrInvalidName = errors.New("invalid profile name")

// ValidateName checks that name is usable as a profile directory: lowercase
// letters, digits, '-' and '_', at most MaxNameLen bytes.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidName, name, MaxNameLen)
	}
	if i := strings.IndexFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_')
	}); i >= 0 {
		return fmt.Errorf("%w: %q has %q at offset %d (use a-z, 0-9, '-' or '_')", ErrInvalidName, name, name[i], i)
	}
	return nil
}
