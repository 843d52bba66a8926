package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/oauth"
	"github.com/hashicorp/go-multierror"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"

	"github.com/mbolis/pmdraft/backend"
	"github.com/mbolis/pmdraft/config"
	"github.com/mbolis/pmdraft/database"
	"github.com/mbolis/pmdraft/draft"
	"github.com/mbolis/pmdraft/form"
	"github.com/mbolis/pmdraft/httpx"
	"github.com/mbolis/pmdraft/log"
	"github.com/mbolis/pmdraft/photo"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
	Sessions *form.Sessions

	closers []func() error
}

// New opens every store named by cfg. Close releases whatever New opened,
// also when New failed. Idle drafts are evicted until ctx is done.
func New(ctx context.Context, cfg config.Config) (app App, err error) {
	app.Config = cfg

	app.DB, err = database.Open(cfg.DBUrl)
	if err != nil {
		return app, fmt.Errorf("db open: %w", err)
	}
	app.closers = append(app.closers, app.DB.Close)
	app.BearerServer = httpx.NewBearerServer(app.DB, cfg)

	drafts, err := app.draftBackend(ctx)
	if err != nil {
		return app, err
	}
	photos, err := app.photoBackend(ctx)
	if err != nil {
		return app, err
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendToken, 0)
	deps := form.Deps{
		Drafts:    draft.NewStore(drafts),
		Photos:    photo.NewStore(photos, cfg.Photos.MaxBytes),
		Submitter: client,
		Clock:     clock.New(),
		Debounce:  cfg.Debounce,
	}
	if cfg.BackendURL != "" {
		deps.Lookup = client
	} else {
		log.Warn("app.backend: no backend url, submissions will fail")
	}
	app.Sessions = form.NewSessions(deps)
	if cfg.SessionIdle > 0 {
		go app.Sessions.Run(ctx, cfg.SessionIdle)
	}
	return app, nil
}

func (app *App) draftBackend(ctx context.Context) (draft.Backend, error) {
	cfg := app.Drafts
	switch cfg.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		app.closers = append(app.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return draft.NewRedisBackend(rdb, cfg.TTL), nil
	case "memory":
		log.Warn("app.drafts: drafts are kept in memory only")
		return draft.NewMemoryBackend(), nil
	default:
		return draft.NewSQLiteBackend(app.DB), nil
	}
}

func (app *App) photoBackend(ctx context.Context) (photo.Backend, error) {
	cfg := app.Photos
	switch cfg.Backend {
	case "minio":
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		if err := photo.EnsureBucket(ctx, client, cfg.MinioBucket); err != nil {
			return nil, err
		}
		return photo.NewMinioBackend(client, cfg.MinioBucket), nil
	case "memory":
		return photo.NewMemoryBackend(), nil
	default:
		return photo.NewSQLiteBackend(app.DB), nil
	}
}

// Close flushes open drafts, then releases stores in reverse opening order.
func (app App) Close(ctx context.Context) error {
	if app.Sessions != nil {
		app.Sessions.CloseAll(ctx)
	}

	var result *multierror.Error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
