package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pharmafront/internal/backend"
	"pharmafront/internal/config"
	httpapi "pharmafront/internal/http"
	"pharmafront/internal/repository"
	"pharmafront/internal/service"
	"pharmafront/internal/session"

	_ "pharmafront/docs"
)

// @title pharmafront API
// @version 1.0
// @description Browser-facing API of the pharmacy distribution front end.
// @BasePath /
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	client := backend.New(backend.Options{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		Logger:  logger,
	})
	authRepo := repository.NewAuth(client)
	ordersRepo := repository.NewOrders(client)
	customersRepo := repository.NewCustomers(client)
	catalogRepo := repository.NewCatalog(client)

	sessions := session.NewStore(cfg.SessionTTL, func(id string) *session.State {
		return session.NewState(id, service.NewAuthState(authRepo), service.NewCart(ordersRepo))
	})

	srv := httpapi.NewServer(httpapi.Deps{
		Logger:       logger,
		Sessions:     sessions,
		Codec:        session.NewCodec(cfg.SessionSecret),
		CookieSecure: cfg.CookieSecure,
		CORSOrigins:  cfg.CORSOrigins,
		PageSize:     cfg.PageSize,
		Debounce:     cfg.SearchDebounce,
		Products:     service.NewProductService(repository.NewProducts(client)),
		Orders:       service.NewOrderService(ordersRepo),
		Categories:   service.NewAdminService(repository.NewCategories(client), service.ValidateCategory),
		Users:        service.NewAdminService(repository.NewUsers(client), service.ValidateUser),
		Customers:    service.NewAdminService(customersRepo, service.ValidateCustomer),
		PriceLists:   service.NewAdminService(repository.NewPriceLists(client), service.ValidatePriceList),
		SalesGroups:  service.NewAdminService(repository.NewSalesGroups(client), service.ValidateSalesGroup),
		Catalog:      catalogRepo,
		Builders: service.BuilderDeps{
			Orders:    ordersRepo,
			Catalog:   catalogRepo,
			Customers: customersRepo,
		},
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go sessions.RunSweeper(ctx, 10*time.Minute, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("http_listening", "addr", httpServer.Addr, "backend", cfg.BackendURL, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server_error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", "err", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
