package secret

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// SchemeEnv is always available and never memoized.
const SchemeEnv = "env"

type registration struct {
	provider Provider
	memoize  bool
}

// Manager routes secret references to providers by URI scheme. Values from
// registered providers are memoized per reference for the configured TTL so
// a remote store is not hit again on every lookup. Failed lookups are not
// cached.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]registration
	resolved  *gocache.Cache // nil when memoization is off
}

// NewManager creates a manager with the env scheme registered. A positive
// cacheTTL enables memoization for providers added with Register.
func NewManager(cacheTTL time.Duration) *Manager {
	m := &Manager{
		providers: map[string]registration{
			SchemeEnv: {provider: envProvider{}},
		},
	}
	if cacheTTL > 0 {
		m.resolved = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return m
}

// Register adds a provider for scheme (e.g. "vault"), replacing any previous
// one. Its values are memoized when the manager has a cache TTL.
func (m *Manager) Register(scheme string, provider Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[scheme] = registration{provider: provider, memoize: true}
	if m.resolved != nil {
		for key := range m.resolved.Items() {
			if strings.HasPrefix(key, scheme+"://") {
				m.resolved.Delete(key)
			}
		}
	}
}

// Get resolves ref. A value without "scheme://" is returned unchanged so
// literal credentials keep working.
func (m *Manager) Get(ctx context.Context, ref string) (string, error) {
	scheme, path, ok := strings.Cut(ref, "://")
	if !ok {
		return ref, nil
	}

	m.mu.RLock()
	reg, found := m.providers[scheme]
	m.mu.RUnlock()
	if !found {
		return "", fmt.Errorf("no secret provider registered for scheme: %s", scheme)
	}

	memoize := reg.memoize && m.resolved != nil
	if memoize {
		if val, hit := m.resolved.Get(ref); hit {
			return val.(string), nil
		}
	}

	val, err := reg.provider.Get(ctx, path)
	if err != nil {
		return "", fmt.Errorf("resolve %s secret: %w", scheme, err)
	}
	if memoize {
		m.resolved.SetDefault(ref, val)
	}
	return val, nil
}

// Close closes all registered providers and drops memoized values.
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.resolved != nil {
		m.resolved.Flush()
	}

	schemes := make([]string, 0, len(m.providers))
	for scheme := range m.providers {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)

	var errs []error
	for _, scheme := range schemes {
		if err := m.providers[scheme].provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", scheme, err))
		}
	}
	return errors.Join(errs...)
}
