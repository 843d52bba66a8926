package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/pmdraft/app"
	"github.com/mbolis/pmdraft/config"
	"github.com/mbolis/pmdraft/database"
	"github.com/mbolis/pmdraft/log"
	"github.com/mbolis/pmdraft/routes"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "useradd" {
		addUser(os.Args[2:])
		return
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := app.New(ctx, cfg)
	if err != nil {
		app.Close(context.Background())
		log.Fatal("main.app:", err)
	}

	err = runServer(ctx, cfg, routes.Wire(app))
	if !errors.Is(err, http.ErrServerClosed) {
		log.Error("main.server:", err)
	}

	// drafts still pending in the debouncers are written here
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Close(closeCtx); err != nil {
		log.Error("main.close:", err)
	}
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("main.shutdown:", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}

// addUser handles `pmdraft useradd [flags] <username> <password> [roles...]`.
// The database is found the same way the server finds it.
func addUser(args []string) {
	cfg, rest, err := config.LoadForAdmin(args)
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if len(rest) < 2 {
		log.Fatal("usage: pmdraft useradd [flags] <username> <password> [roles...]")
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if err := database.AddUser(context.Background(), db, rest[0], rest[1], rest[2:]...); err != nil {
		log.Fatal("main.useradd:", err)
	}
	log.Infof("user %s saved", rest[0])
}
