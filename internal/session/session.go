// Package session builds the scs session manager that carries partial
// registrations between requests.
package session

import (
	"database/sql"
	"fmt"
	"net/http"

	"news-api/internal/config"
	"news-api/internal/session/redisstore"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/redis/go-redis/v9"
)

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// New returns a session manager backed by the store named in cfg.Store.
// db is used by the sqlite store and may be nil otherwise.
func New(cfg config.Session, db *sql.DB) (*scs.SessionManager, error) {
	const op = "session.New"

	store, err := newStore(cfg, db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sm := scs.New()
	sm.Store = store
	sm.Lifetime = cfg.Lifetime
	sm.IdleTimeout = cfg.IdleTimeout
	sm.Cookie.Name = cfg.CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Persist = false
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = cfg.CookieSecure

	return sm, nil
}

func newStore(cfg config.Session, db *sql.DB) (scs.Store, error) {
	switch cfg.Store {
	case StoreSQLite, "":
		if db == nil {
			return nil, fmt.Errorf("sqlite session store needs a database")
		}
		return sqlite3store.New(db), nil
	case StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisstore.New(client), nil
	case StoreMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
