package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLength = 120

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName makes an uploaded screenshot or dataset name safe to use as
// the last segment of a storage key. Separators become underscores, control
// characters are dropped, and traversal patterns are rejected. Long names keep
// their tail so the extension survives.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if strings.Trim(s, "_ ") == "" {
		return "", ErrInvalidFileName
	}
	if runes := []rune(s); len(runes) > maxFileNameLength {
		s = string(runes[len(runes)-maxFileNameLength:])
	}
	return s, nil
}
