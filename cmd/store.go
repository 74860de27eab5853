package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rollcall/internal/store"
)

// defaultSQLitePath is used when store.database_url is empty.
const defaultSQLitePath = "rollcall.db"

// initStore opens and migrates the configured run history store. It returns
// a nil Store for driver "none".
func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	switch cfg.Store.Driver {
	case "none":
		return nil, nil
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		s, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolConfig())
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// poolConfig maps the store section onto the Postgres pool settings.
func poolConfig() *store.PoolConfig {
	return &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	}
}

func closeStore(st store.Store) {
	if st != nil {
		_ = st.Close()
	}
}
