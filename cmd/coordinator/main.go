package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crosschain-labs/swap-coordinator/pkg/chainadapter/chainb"
	"github.com/crosschain-labs/swap-coordinator/pkg/chainadapter/evm"
	"github.com/crosschain-labs/swap-coordinator/pkg/config"
	"github.com/crosschain-labs/swap-coordinator/pkg/manager"
	"github.com/crosschain-labs/swap-coordinator/pkg/quoteprovider"
	"github.com/crosschain-labs/swap-coordinator/pkg/restapi"
	"github.com/crosschain-labs/swap-coordinator/pkg/wsapi"
)

var (
	configPath string
	logger     *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Cross-chain swap coordination service",
	Long: `An off-chain coordination service for atomic swaps between an EVM chain and
chain-B: tracks quotes and orders, verifies escrow events on both chains, and
signals resolvers when it is safe to release a secret.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
	RunE: runCoordinator,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the coordination service",
	RunE:  runCoordinator,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("swap-coordinator v1.0.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogger() error {
	var err error
	if os.Getenv("DEV_MODE") == "true" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Info("starting swap coordinator",
		zap.Bool("devMode", cfg.DevMode),
		zap.Int("apiPort", cfg.API.Port),
		zap.Int("wsPort", cfg.API.WSPort),
	)

	evmAdapter, err := evm.NewClient(evm.Config{
		RPCURL:         cfg.Chains.EVM.RPCURL,
		FactoryAddress: cfg.Chains.EVM.FactoryAddress,
	}, logger.Named("evm"))
	if err != nil {
		if !cfg.DevMode {
			return fmt.Errorf("failed to initialize evm adapter: %w", err)
		}
		logger.Warn("evm adapter unavailable in dev mode, continuing without chain access", zap.Error(err))
	}

	chainBAdapter, err := chainb.NewClient(chainb.Config{
		RPCURL: cfg.Chains.ChainB.RPCURL,
	}, logger.Named("chainb"))
	if err != nil {
		if !cfg.DevMode {
			return fmt.Errorf("failed to initialize chain-b adapter: %w", err)
		}
		logger.Warn("chain-b adapter unavailable in dev mode, continuing without chain access", zap.Error(err))
	}

	mgr := manager.New(manager.Config{}, evmAdapter, chainBAdapter, logger.Named("manager"))
	quotes := quoteprovider.New(cfg.Upstream.URL, cfg.Upstream.APIKey, cfg.DevMode, logger.Named("quoteprovider"))

	restServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      restapi.NewRouter(mgr, quotes, logger.Named("restapi")),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", wsapi.NewHandler(mgr, logger.Named("wsapi")))
	wsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.WSPort),
		Handler: wsMux,
	}

	go func() {
		logger.Info("rest api listening", zap.String("addr", restServer.Addr))
		if err := restServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("rest api server error", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("ws api listening", zap.String("addr", wsServer.Addr))
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ws api server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	logger.Info("shutting down coordinator...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down rest api", zap.Error(err))
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down ws api", zap.Error(err))
	}

	mgr.Close()
	logger.Info("coordinator stopped successfully")
	return nil
}
