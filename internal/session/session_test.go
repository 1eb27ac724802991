package session

import (
	"path/filepath"
	"testing"
	"time"

	"news-api/internal/config"
	"news-api/internal/session/redisstore"
	"news-api/internal/storage/sqlite"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Stores(t *testing.T) {
	st, err := sqlite.New(filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Session{Lifetime: time.Hour, IdleTimeout: time.Minute, CookieName: "reg"}

	cfg.Store = StoreSQLite
	sm, err := New(cfg, st.DB())
	require.NoError(t, err)
	assert.IsType(t, &sqlite3store.SQLite3Store{}, sm.Store)
	assert.Equal(t, "reg", sm.Cookie.Name)
	assert.Equal(t, time.Hour, sm.Lifetime)

	cfg.Store = StoreMemory
	sm, err = New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &memstore.MemStore{}, sm.Store)

	cfg.Store = StoreRedis
	cfg.Redis.Addr = "localhost:0"
	sm, err = New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &redisstore.Store{}, sm.Store)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.Session{Store: StoreSQLite}, nil)
	require.Error(t, err)

	_, err = New(config.Session{Store: "etcd"}, nil)
	require.Error(t, err)
}
