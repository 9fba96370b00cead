package slipstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/slipstream-app/slipstream/pkg/store"
	"github.com/slipstream-app/slipstream/pkg/store/memory"
	"github.com/slipstream-app/slipstream/pkg/store/postgres"
	"github.com/slipstream-app/slipstream/pkg/store/surreal"
)

// migrator is implemented by stores with a schema to set up.
type migrator interface {
	Migrate(ctx context.Context) error
}

// Run executes cmd with the given configuration. For RunCommand it serves
// until ctx is canceled, then shuts down gracefully.
func Run(ctx context.Context, cmd Command, config *Config, log zerolog.Logger) error {
	st, err := openStore(ctx, config)
	if err != nil {
		return err
	}
	defer st.Close()

	switch cmd.(type) {
	case MigrateCommand:
		m, ok := st.(migrator)
		if !ok {
			log.Info().Str("store", config.StoreBackend).Msg("store needs no migration")
			return nil
		}
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Str("store", config.StoreBackend).Msg("migration complete")
		return nil

	case RunCommand:
		app := NewApp(config, st, log)
		server := &http.Server{
			Addr:    ":" + config.ServerPort,
			Handler: app.Handler(),
		}

		serverErr := make(chan error, 1)
		go func() {
			log.Info().
				Str("port", config.ServerPort).
				Str("store", config.StoreBackend).
				Msg("server starting")
			serverErr <- server.ListenAndServe()
		}()

		select {
		case err := <-serverErr:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}

	default:
		return fmt.Errorf("unknown command: %s", cmd.Name())
	}
}

func openStore(ctx context.Context, config *Config) (store.Store, error) {
	switch config.StoreBackend {
	case "memory":
		return memory.New(), nil
	case "postgres":
		return postgres.New(config.PostgresDSN)
	case "surreal":
		return surreal.New(ctx, config.SurrealDBURL, config.SurrealDBNS, config.SurrealDBDB, config.SurrealDBUser, config.SurrealDBPass)
	default:
		return nil, fmt.Errorf("invalid store backend: %s", config.StoreBackend)
	}
}
