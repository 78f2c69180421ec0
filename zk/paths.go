package zk

import (
	"github.com/pkg/errors"
)

// ValidatePath implements the path-validation contract the
// core consumes before every operation. Real deployments would run this
// from an external façade; this module's public methods call it directly
// since no separate façade package exists in this repo's scope (see
// DESIGN.md's resolution of that boundary).
func ValidatePath(path string) error {
	if path == "" {
		return errors.Wrap(ErrInvalidPath, "path must not be empty")
	}
	if path[0] != '/' {
		return errors.Wrapf(ErrInvalidPath, "path %q must start with '/'", path)
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		return errors.Wrapf(ErrInvalidPath, "path %q must not end with '/'", path)
	}
	for _, r := range path {
		if isForbiddenPathRune(r) {
			return errors.Wrapf(ErrInvalidPath, "path %q contains forbidden character %U", path, r)
		}
	}
	return nil
}

func isForbiddenPathRune(r rune) bool {
	switch {
	case r >= 0x0001 && r <= 0x001F:
		return true
	case r >= 0x007F && r <= 0x009F:
		return true
	case r >= 0xD800 && r <= 0xF8FF:
		return true
	case r >= 0xFFF0 && r <= 0xFFFF:
		return true
	default:
		return false
	}
}
