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

	"github.com/spf13/cobra"

	"github.com/adfharrison1/wqdb/pkg/config"
	"github.com/adfharrison1/wqdb/pkg/server"
	"github.com/adfharrison1/wqdb/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serve starts the HTTP API. Collection metadata is loaded from the snapshot
file and the data directory on start; documents are loaded on first use. The
snapshot is written on graceful shutdown.

Without --background-save or --transaction-save, data is only saved on
graceful shutdown. Enable one of them for better data safety in production.`,
	RunE: runServe,
}

func init() {
	addServerFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(settings)
	if err != nil {
		return err
	}

	// One server per data directory
	lock, err := storage.LockDataDir(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("WARN: Could not release lock %s: %v", lock.Path(), err)
		}
	}()

	log.Printf("INFO: Using data directory: %s", cfg.DataDir)
	log.Printf("INFO: Max memory set to: %d MB", cfg.MaxMemoryMB)
	switch {
	case cfg.BackgroundSave > 0:
		log.Printf("INFO: Background save enabled: every %v", cfg.BackgroundSave)
	case cfg.TransactionSave:
		log.Printf("INFO: Transaction save enabled: collections are saved after every write")
	default:
		log.Printf("WARN: Background save disabled - data only saved on graceful shutdown")
	}

	srv, err := server.NewServer(cfg.StorageOptions()...)
	if err != nil {
		return err
	}
	defer srv.StopBackgroundWorkers() // Ensure cleanup

	dataFile := cfg.DataFilePath()
	log.Printf("INFO: Loading data from: %s", dataFile)
	if err := srv.InitDB(dataFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", dataFile, err)
	}
	srv.StartBackgroundWorkers()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("INFO: Starting wqdb server on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Println("INFO: Shutting down server...")

	// Give outstanding requests a deadline for completion
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	// Save database after the last request finished
	log.Printf("INFO: Saving data to: %s", dataFile)
	if err := srv.SaveDB(dataFile); err != nil {
		return err
	}

	log.Println("INFO: Server exited")
	return nil
}
