// Package secret resolves credential references in the configuration, such
// as the model runtime API key or the Redis password, into their values.
// A reference is either a literal or scheme://path (env://VAR,
// vault://path#key).
package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider retrieves secrets from one source.
type Provider interface {
	// Get retrieves the secret value for the given path. The scheme prefix
	// has already been stripped by the Manager.
	Get(ctx context.Context, path string) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}

// envProvider reads credentials from the process environment. Values are
// trimmed because keys mounted from files usually end in a newline, which
// would corrupt an Authorization header.
type envProvider struct{}

func (envProvider) Get(_ context.Context, name string) (string, error) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("environment variable %q not set", name)
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return "", fmt.Errorf("environment variable %q is empty", name)
	}
	return val, nil
}

func (envProvider) Close() error { return nil }
