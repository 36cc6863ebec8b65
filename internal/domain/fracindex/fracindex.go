// Package fracindex generates base-62 fractional order keys.
//
// Keys sort lexicographically and a new key can always be produced between
// any two existing ones. Generation is delegated to fracdex, whose keys are
// identical to the fractional-indexing npm package used by the web client,
// so keys created on either side interleave correctly.
package fracindex

import (
	"errors"
	"fmt"
	"strings"

	"roci.dev/fracdex"
)

const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// ErrInvalidKey is returned for keys that are not valid order keys, and for
// bounds that are not strictly ascending.
var ErrInvalidKey = errors.New("invalid order key")

// First is the key used for the first item of an empty list.
const First = "a0"

// KeyBetween returns a key strictly between a and b. An empty string means
// unbounded on that side, so KeyBetween("", "") returns First.
func KeyBetween(a, b string) (string, error) {
	for _, k := range []string{a, b} {
		if k == "" {
			continue
		}
		if err := checkDigits(k); err != nil {
			return "", err
		}
	}
	key, err := fracdex.KeyBetween(a, b)
	if err != nil {
		return "", fmt.Errorf("%w: %q, %q: %v", ErrInvalidKey, a, b, err)
	}
	return key, nil
}

// Validate reports whether key is a well-formed order key.
func Validate(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if err := checkDigits(key); err != nil {
		return err
	}
	// fracdex validates both bounds before generating.
	if _, err := fracdex.KeyBetween(key, ""); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidKey, key, err)
	}
	return nil
}

// checkDigits rejects characters outside the base-62 alphabet, which
// fracdex does not check.
func checkDigits(key string) error {
	for i := 0; i < len(key); i++ {
		if strings.IndexByte(digits, key[i]) < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
