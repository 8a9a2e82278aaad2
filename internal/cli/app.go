// Package cli implements the glbkeeper command line: the cobra command tree,
// the interactive shell and the output formats.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/atinyakov/glbkeeper/internal/config"
	"github.com/atinyakov/glbkeeper/internal/db"
	"github.com/atinyakov/glbkeeper/internal/models"
	"github.com/atinyakov/glbkeeper/internal/repository"
	"github.com/atinyakov/glbkeeper/internal/service"
	"github.com/atinyakov/glbkeeper/internal/session"
	"github.com/atinyakov/glbkeeper/internal/worker"
	"go.uber.org/zap"
)

var errNotOpened = errors.New("application is not initialised")

// App holds the wired stores and services shared by all commands.
// It is populated by the root command before any command that needs it runs.
type App struct {
	Options *config.Options
	Log     *zap.Logger

	DB      *sql.DB
	Models  *repository.ModelRepository
	Auth    *service.AuthService
	Catalog *service.CatalogService
	Pool    *worker.Pool
}

// open connects the stores, builds the services, starts the worker pool and
// seeds the default accounts.
func (a *App) open(ctx context.Context, opts *config.Options, log *zap.Logger) error {
	if a.DB != nil {
		return nil
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(opts.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	conn, err := db.Init(opts.Driver, opts.DSN())
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(conn)
	modelRepo := repository.NewModelRepository(conn, log)
	sessions := session.NewStore(opts.SessionPath())

	a.Options = opts
	a.Log = log
	a.DB = conn
	a.Models = modelRepo
	a.Auth = service.NewAuthService(users, sessions, log)
	a.Catalog = service.NewCatalogService(modelRepo, opts.ModelDir(), log)
	a.Pool = worker.New(context.WithoutCancel(ctx), opts.Workers)

	if err := <-a.Pool.Submit(a.Auth.Seed); err != nil {
		_ = a.Close()
		return fmt.Errorf("seed users: %w", err)
	}
	return nil
}

// Close drains the worker pool and closes the database. It is safe to call
// on an App that was never opened.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
	}
	if a.DB == nil {
		return nil
	}
	err := a.DB.Close()
	a.DB = nil
	return err
}

// Authorize checks the persisted session against the required role.
func (a *App) Authorize(required models.Role) (service.Identity, error) {
	if a.Auth == nil {
		return service.Identity{}, errNotOpened
	}
	return a.Auth.Authorize(required)
}

// login runs the credential lookup on the worker pool.
func (a *App) login(username, password string) (*models.User, error) {
	var u *models.User
	err := <-a.Pool.Submit(func(ctx context.Context) error {
		var err error
		u, err = a.Auth.Login(ctx, username, password)
		return err
	})
	return u, err
}
