package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hivefarm/config"
	"hivefarm/crypto"
	"hivefarm/gateway"
	"hivefarm/native/farming"
	"hivefarm/native/referral"
	"hivefarm/native/token"
	"hivefarm/observability/logging"
	"hivefarm/state"
	"hivefarm/storage"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// moduleAddrSeed derives the ledger custody address deterministically so
// restarts keep pointing at the same custodied balances.
const moduleAddrSeed = "hivefarm/module/farming"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("hivefarmd", cfg.NetworkName, cfg.LogPath)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	engine, registry, err := buildLedger(cfg, db)
	if err != nil {
		logger.Error("Failed to assemble ledger", slog.Any("error", err))
		os.Exit(1)
	}

	handler, err := gateway.New(gateway.Config{
		Farming:   engine,
		Referrals: registry,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to build gateway", slog.Any("error", err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Gateway listening", slog.String("addr", cfg.ListenAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Gateway stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Gateway shutdown", slog.Any("error", err))
	}
}

func buildLedger(cfg *config.Config, db storage.Database) (*farming.Engine, *referral.Registry, error) {
	ledger := state.NewLedgerState(db)

	vault := token.NewVault(ledger)
	maxSupply, err := cfg.MaxSupplyAmount()
	if err != nil {
		return nil, nil, err
	}
	vault.RegisterMintable(cfg.RewardSymbol, maxSupply)

	nfts := token.NewNFTCustodian(ledger)

	registry := referral.NewRegistry(ledger, referral.Rates{
		DefaultLevel1:      cfg.Referral.DefaultLevel1,
		Level2:             cfg.Referral.Level2,
		Level3:             cfg.Referral.Level3,
		FlatDepositPermill: cfg.Referral.FlatDepositPermill,
	})

	owner, err := cfg.OwnerAddress()
	if err != nil {
		return nil, nil, err
	}
	feeSink, err := cfg.FeeSinkAddress()
	if err != nil {
		return nil, nil, err
	}
	registry.SetOperator(owner)

	engine := farming.NewEngine(moduleAddress(), feeSink, cfg.RewardSymbol)
	engine.SetState(ledger)
	engine.SetVault(vault)
	engine.SetNFTCustodian(nfts)
	engine.SetReferrals(registry)
	engine.SetOwner(owner)
	engine.SetBlockHeight(cfg.GenesisHeight)

	if err := ensureGenesisParams(ledger, cfg); err != nil {
		return nil, nil, err
	}
	return engine, registry, nil
}

func ensureGenesisParams(ledger *state.LedgerState, cfg *config.Config) error {
	params, err := ledger.GetParams()
	if err != nil {
		return err
	}
	if params != nil {
		return nil
	}
	rate, err := cfg.EmissionRateAmount()
	if err != nil {
		return err
	}
	return ledger.PutParams(&farming.Params{
		EmissionRate:  rate,
		GenesisHeight: cfg.GenesisHeight,
	})
}

func moduleAddress() crypto.Address {
	digest := ethcrypto.Keccak256([]byte(moduleAddrSeed))
	return crypto.NewAddress(crypto.HivePrefix, digest[12:])
}
