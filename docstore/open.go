package docstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/forumfeed/config"
)

// Open builds the store selected by cfg.StoreDriver. When rc is non-nil the
// result is wrapped in a CachedStore.
func Open(cfg config.AppConfig, rc *redis.Client) (Store, error) {
	var base Store
	switch strings.ToLower(cfg.StoreDriver) {
	case "", "memory":
		base = NewMemory()
	case "mysql":
		base = NewGormStore(config.InitDatabase())
	case "sqlite":
		db, err := config.OpenSQLite(cfg.DatabaseURI, cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		base = NewGormStore(db)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if rc == nil {
		return base, nil
	}
	return NewCachedStore(base, rc, time.Duration(cfg.CacheTTLSeconds)*time.Second), nil
}
