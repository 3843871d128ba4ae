// Package main runs the vault dashboard service: it binds the wallet
// identity stream to portfolio reloads and exposes the view-model plus the
// transaction lifecycle over a JSON API for the presentation layer.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autovault/internal/catalog"
	"autovault/internal/chain"
	"autovault/internal/config"
	"autovault/internal/session"
	"autovault/internal/txflow"
	"autovault/internal/wallet"
)

func main() {
	configPath := flag.String("config", "configs/dashboard.yaml", "Path to YAML config file")
	gatewayEndpoint := flag.String("gateway-endpoint", os.Getenv("GATEWAY_ENDPOINT"), "Chain gateway JSON-RPC endpoint")
	bridgeEndpoint := flag.String("wallet-bridge", os.Getenv("WALLET_BRIDGE_ENDPOINT"), "Wallet bridge WebSocket endpoint (empty = manual provider)")
	listenAddr := flag.String("listen", "", "HTTP listen address (overrides config)")
	flag.Parse()

	logger := log.New(os.Stdout, "[dashboard] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *gatewayEndpoint != "" {
		cfg.Gateway.Endpoint = *gatewayEndpoint
	}
	if *bridgeEndpoint != "" {
		cfg.Wallet.BridgeEndpoint = *bridgeEndpoint
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway := chain.NewClient(cfg.Gateway.Endpoint,
		chain.WithTimeout(cfg.Gateway.RequestTimeout),
		chain.WithMaxRetries(cfg.Gateway.MaxRetries),
		chain.WithPollInterval(cfg.Gateway.PollInterval),
	)

	// Wallet boundary: a bridge endpoint connects to the real wallet
	// provider; without one the manual provider serves local development.
	var (
		provider wallet.Provider
		auth     wallet.Authorizer
	)
	if cfg.Wallet.BridgeEndpoint != "" {
		bridge, err := wallet.NewBridgeProvider(ctx, cfg.Wallet.BridgeEndpoint, nil, nil)
		if err != nil {
			logger.Fatalf("Failed to connect wallet bridge: %v", err)
		}
		defer bridge.Close()
		provider, auth = bridge, bridge
	} else {
		logger.Printf("No wallet bridge configured; using manual provider")
		manual := wallet.NewManualProvider()
		provider, auth = manual, manual
	}

	loader := session.NewLoader(gateway, provider, nil)
	loader.Start(ctx)
	defer loader.Close()

	orch := txflow.New(gateway, auth, nil)
	catalogSvc := catalog.NewService(gateway, nil)

	// Refetch the portfolio after every sealed transaction.
	go func() {
		for state := range orch.Observe(ctx) {
			if state.Phase == txflow.PhaseSealed {
				loader.Refetch(ctx)
			}
		}
	}()

	api := newAPI(loader, orch, catalogSvc, cfg, logger)
	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      api.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Printf("Listening on %s", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Printf("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
	}
}
