package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shoplist/internal/api"
	"shoplist/internal/app/service"
	"shoplist/internal/common/security"
	"shoplist/internal/domain/repository"
	"shoplist/internal/platform/cache"
	"shoplist/internal/platform/config"
	"shoplist/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Configuration loaded.")

	// 2. Initialize Token Authority
	authority := security.NewTokenAuthority(cfg.JWTKey, cfg.JWTExp)

	// 3. Initialize Database
	db := database.Connect(cfg)
	defer database.Close(db)
	log.Println("Database connected.")

	// 4. Initialize Redis (token revocation denylist)
	rdb := cache.Connect(cfg)
	defer cache.Close(rdb)
	log.Println("Redis connected.")
	revocations := cache.NewRevocationList(rdb, cfg.JWTExp)

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(db)
	groupRepo := repository.NewPgGroupRepository(db)

	// 6. Initialize Services
	authService := service.NewAuthService(userRepo, authority)
	userService := service.NewUserService(userRepo, groupRepo, revocations, db)
	groupService := service.NewGroupService(groupRepo, userRepo, db)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(authority, revocations, authService, userService, groupService)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
