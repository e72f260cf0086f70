package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	cfg, err := identity.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	signer, err := identity.NewHMACSigner(cfg.GetAccessSecret(), cfg.GetRefreshSecret())
	if err != nil {
		log.Fatalf("signer: %v", err)
	}

	gateway, err := identity.NewGatewayNotifier(cfg.GetMailerURL())
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}
	notifier := identity.NewRetryingNotifier(gateway)

	repo := identity.NewDirectory(db)
	if err := repo.Validate(); err != nil {
		log.Fatalf("directory: %v", err)
	}

	sessions := identity.NewSessionManager(signer, repo.Sessions(),
		identity.WithTokenTTLs(cfg.GetAccessTokenTTL(), cfg.GetRefreshTokenTTL()),
	)

	lifecycle := identity.NewIdentityLifecycle(
		repo,
		sessions,
		signer,
		identity.NewBcryptHasher(identity.DefaultBcryptCost),
		notifier,
		identity.WithConfirmationLinks(cfg.GetActivationBaseURL(), cfg.GetResetBaseURL()),
	)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	identity.RegisterIdentityRoutes(srv.Router().Group("/"),
		identity.WithControllerLifecycle(lifecycle),
		identity.WithRefreshCookie(cfg.GetRefreshTokenTTL(), true),
	)

	srv.Router().Get("/me", func(ctx router.Context) error {
		summary, ok := identity.GetRouterIdentity(ctx, "")
		if !ok {
			return ctx.JSON(http.StatusUnauthorized, identity.ErrorResponse{
				Message:  "Unauthorized",
				TextCode: identity.TextCodeMissingToken,
			})
		}
		return ctx.JSON(http.StatusOK, summary)
	}, identity.RequireAccessToken(signer)).SetName("identity.me")

	log.Printf("identityd listening on %s", cfg.ListenAddr)

	srv.Serve(cfg.ListenAddr)

	WaitExitSignal()
}

func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	models := []any{
		(*identity.User)(nil),
		(*identity.Session)(nil),
		(*identity.ResetTicket)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
