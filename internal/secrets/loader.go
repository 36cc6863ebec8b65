package secrets

import (
	"fmt"
	"maps"
	"os"
	"strings"
)

// EnvLoader returns a Loader that reads the specified environment variables.
// Missing variables are silently omitted from the result map.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

// FileLoader returns a Loader that reads each key from the file named by
// the KEY_FILE environment variable, as mounted by container secrets.
// Trailing whitespace is trimmed. Keys without a _FILE variable are omitted.
func FileLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			path := os.Getenv(k + "_FILE")
			if path == "" {
				continue
			}
			b, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
			if err != nil {
				return nil, fmt.Errorf("read %s_FILE: %w", k, err)
			}
			if v := strings.TrimRight(string(b), " \t\r\n"); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

// Static returns a Loader that always yields vals, skipping empty values.
func Static(vals map[string]string) Loader {
	return func() (map[string]string, error) {
		out := make(map[string]string, len(vals))
		for k, v := range vals {
			if v != "" {
				out[k] = v
			}
		}
		return out, nil
	}
}

// Chain merges loaders in order; later loaders override earlier ones.
func Chain(loaders ...Loader) Loader {
	return func() (map[string]string, error) {
		out := map[string]string{}
		for _, l := range loaders {
			vals, err := l()
			if err != nil {
				return nil, err
			}
			maps.Copy(out, vals)
		}
		return out, nil
	}
}

// RequireMinLength wraps l so that loading fails when key is missing or
// shorter than n characters.
func RequireMinLength(l Loader, key string, n int) Loader {
	return func() (map[string]string, error) {
		vals, err := l()
		if err != nil {
			return nil, err
		}
		if len(vals[key]) < n {
			return nil, fmt.Errorf("%s must be at least %d characters", key, n)
		}
		return vals, nil
	}
}
