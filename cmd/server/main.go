// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chainmart/chainmart-backend/internal/blockchain"
	"github.com/chainmart/chainmart-backend/internal/blockchain/evm"
	"github.com/chainmart/chainmart-backend/internal/config"
	"github.com/chainmart/chainmart-backend/internal/database"
	"github.com/chainmart/chainmart-backend/internal/reconcilelock"
	"github.com/chainmart/chainmart-backend/internal/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Seed configured networks, marketplace contracts and native tokens
	if err := database.SeedInitialData(db, cfg.Networks); err != nil {
		log.Fatal("Failed to seed initial data:", err)
	}

	// Build the chain client registry
	registry := blockchain.NewRegistry()
	var chainClients []*evm.Client
	for _, network := range cfg.Networks {
		client, err := evm.NewClient(network.RPCURL, network.ChainID)
		if err != nil {
			log.Fatalf("Failed to connect to chain %d (%s): %v", network.ChainID, network.Name, err)
		}
		chainClients = append(chainClients, client)
		registry.Register(network.ChainID, blockchain.Clients{Reader: client, State: client})
	}
	defer func() {
		for _, client := range chainClients {
			client.Close()
		}
	}()

	// Initialize the reconciliation lock
	locker, err := reconcilelock.New(reconcilelock.Config{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		LockTTL:  time.Duration(cfg.Redis.LockTTLSecs) * time.Second,
	})
	if err != nil {
		log.Fatal("Failed to connect to redis:", err)
	}
	defer locker.Close()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(db, cfg, registry, locker)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
