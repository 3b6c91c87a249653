// Package input validates chat messages before they reach the engine.
package input

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/orderdesk/pkg/domain"
)

var (
	// DefaultMaxInputSize is 4KB (conservative default)
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "ORDERDESK_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = fmt.Errorf("%w: input exceeds maximum allowed size", domain.ErrInvalidInput)
	ErrInvalidUTF8   = fmt.Errorf("%w: input contains invalid UTF-8 sequences", domain.ErrInvalidInput)
)

// Sanitize rejects oversized or malformed messages and strips control
// characters other than newline, tab and carriage return.
// A limit of zero or less means the default.
func Sanitize(msg string, limit int) (string, error) {
	if limit <= 0 {
		limit = MaxInputSize()
	}
	if len(msg) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(msg), limit)
	}

	if !utf8.ValidString(msg) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(msg, unsafeControl) < 0 {
		return msg, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, msg), nil
}

// IsInputError reports whether err came from Sanitize.
func IsInputError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput)
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

// MaxInputSize returns the limit from the environment, or the default.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
