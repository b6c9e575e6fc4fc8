// Command mockbackend serves the in-memory REST backend with demo data, for
// running the front end without the real API.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pharmafront/internal/mockapi"
)

func main() {
	_ = godotenv.Load()
	port := os.Getenv("MOCK_BACKEND_PORT")
	if port == "" {
		port = "8000"
	}
	secret := os.Getenv("MOCK_JWT_SECRET")
	if secret == "" {
		secret = "mock-backend-secret"
	}
	if os.Getenv("APP_ENV") != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	store := mockapi.NewStore()
	mockapi.Seed(context.Background(), store)
	api := mockapi.NewServer(store, secret)

	httpServer := &http.Server{Addr: ":" + port, Handler: api}
	go func() {
		log.Printf("mock backend on %s (users %s/%s/%s/%s, password %s)", httpServer.Addr,
			mockapi.DemoAdmin, mockapi.DemoSeller, mockapi.DemoMarketing, mockapi.DemoCustomer, mockapi.DemoPassword)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
