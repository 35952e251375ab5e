// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/api"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/app"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/config"
	"github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/utils"
)

func main() {
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	createDirectories(baseConfig)

	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}
	cfg := config.GetCurrentConfig()

	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "engine.log")); err != nil {
		log.Printf("warning: logging to stdout only: %v", err)
	}
	logger := utils.GetLogger()
	if cfg.DebugMode {
		logger.SetLogLevel(utils.DEBUG)
	}

	services, err := app.InitServices(cfg)
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	defer services.Close()

	router, err := api.SetupRouter()
	if err != nil {
		log.Fatalf("failed to set up router: %v", err)
	}

	logger.Info("server starting", map[string]interface{}{
		"port":     cfg.Port,
		"data_dir": cfg.DataDir,
	})

	runWithGracefulShutdown(router, cfg.Port)
}

func runWithGracefulShutdown(router *gin.Engine, port string) {
	logger := utils.GetLogger()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced server shutdown: %v", err)
	}

	logger.Info("server stopped", nil)
}

func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		filepath.Join(cfg.DataDir, "novels"),
		filepath.Join(cfg.DataDir, "stats"),
		cfg.LogDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}
}
