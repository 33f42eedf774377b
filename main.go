package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/inkboard/boardserver/api"
	"github.com/inkboard/boardserver/registry"
	"github.com/inkboard/boardserver/store/pebbledb"
)

func main() {
	devMode := os.Getenv("DEV_MODE") == "true"

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	st, err := pebbledb.Open(dataDir)
	if err != nil {
		log.Fatalf("Failed to open element store at %s: %v", dataDir, err)
	}
	defer st.Close()

	reg := registry.New(st)
	defer reg.Close()

	clientDir := os.Getenv("CLIENT_DIR")

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boardAPI := api.New(reg, clientDir, shutdownCtx)
	router := mux.NewRouter()
	boardAPI.RegisterRoutes(router)

	hostPort := os.Getenv("HOST_PORT")
	if hostPort == "" {
		hostPort = "3000"
	}

	srv := &http.Server{
		Addr:    ":" + hostPort,
		Handler: router,
	}

	go func() {
		<-shutdownCtx.Done()
		log.Printf("Server shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
		}
	}()

	if devMode {
		log.Printf("Running in dev mode, data directory %s", dataDir)
	}

	log.Printf("Starting server on host port: %s\n", hostPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
