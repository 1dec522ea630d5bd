package credstore

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ClinicFlow2/frontend/internal/config"
)

// Fixed entry names shared by every backend.
const (
	AccessKey  = "access_token"
	RefreshKey = "refresh_token"
)

// Tokens is the persisted session. An empty field means the token is absent.
type Tokens struct {
	Access  string
	Refresh string
}

// Store persists the token pair. Tokens are opaque; nothing here inspects
// or validates them.
type Store interface {
	// Save persists both tokens, overwriting any existing values.
	Save(access, refresh string) error
	// SaveAccess replaces only the access token.
	SaveAccess(access string) error
	// Read returns the current tokens; either may be empty.
	Read() (Tokens, error)
	// Clear removes both tokens.
	Clear() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// New builds the backend selected by cfg, scoped to origin.
func New(cfg config.Credentials, origin string) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendFile:
		return NewFileStore(cfg.Path, origin), nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		return NewRedisStore(rdb, origin), nil
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}
}

// Origin reduces a base URL to scheme://host[:port], the scope under which
// tokens are stored.
func Origin(baseURL string) (string, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return "", fmt.Errorf("base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", baseURL)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
