package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tierpass/config"
	"tierpass/core/events"
	"tierpass/core/state"
	"tierpass/core/types"
	"tierpass/gateway"
	"tierpass/gateway/middleware"
	"tierpass/native/bank"
	"tierpass/native/pass"
	"tierpass/native/registry"
	"tierpass/observability/logging"
	"tierpass/rpc"
	"tierpass/storage"
)

var genesisAppliedKey = []byte("genesis/applied")

// logEmitter forwards engine events to the structured logger.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	attrs := []any{"type", evt.EventType()}
	if wrapped, ok := evt.(interface{ Event() *types.Event }); ok {
		for key, value := range wrapped.Event().Attributes {
			if logging.IsSensitive(key) {
				value = logging.MaskValue(value)
			}
			attrs = append(attrs, key, value)
		}
	}
	l.logger.Info("event", attrs...)
}

func main() {
	configPath := flag.String("config", "./config.toml", "path to the service configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("tierpassd", cfg.Environment)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "tierpass"))
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	ownership := registry.NewLedger(manager)
	settlement := bank.NewLedger(manager)

	owner, err := config.ParseAddress(cfg.Owner)
	if err != nil {
		logger.Error("parse owner address", "error", err.Error())
		os.Exit(1)
	}
	admins := make([][20]byte, 0, len(cfg.Admins))
	for _, admin := range cfg.Admins {
		parsed, err := config.ParseAddress(admin)
		if err != nil {
			logger.Error("parse admin address", "admin", admin, "error", err.Error())
			os.Exit(1)
		}
		admins = append(admins, parsed)
	}

	engine := pass.NewEngine()
	engine.SetState(manager)
	engine.SetOwnership(ownership)
	engine.SetPayments(settlement)
	engine.SetAccessControl(pass.NewAdminSet(owner, admins...))
	engine.SetEmitter(logEmitter{logger: logger})
	ownership.RegisterHook(engine.HandleTransfer)

	if cfg.GenesisFile != "" {
		if err := seedGenesis(manager, engine, settlement, owner, cfg.GenesisFile, logger); err != nil {
			logger.Error("apply genesis", "error", err.Error())
			os.Exit(1)
		}
	}

	rpcServer := rpc.NewServer(engine, settlement, owner, "")
	go func() {
		logger.Info("starting JSON-RPC server", "addr", cfg.RPCAddress)
		if err := rpcServer.Start(cfg.RPCAddress); err != nil {
			logger.Error("rpc server stopped", "error", err.Error())
			os.Exit(1)
		}
	}()

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "tierpass-gateway",
		LogRequests: true,
	}, logger)
	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    cfg.GatewayJWTSecret != "",
		HMACSecret: cfg.GatewayJWTSecret,
	}, logger)
	limiter := middleware.NewRateLimiter(middleware.RateLimit{
		RequestsPerMinute: cfg.RateLimitPerMin,
		Burst:             cfg.RateLimitBurst,
	}, logger)
	router := gateway.New(gateway.Config{
		RPCHandler:    rpcServer.Handler(),
		Authenticator: auth,
		RateLimiter:   limiter,
		Observability: obs,
	})
	go func() {
		logger.Info("starting gateway", "addr", cfg.GatewayAddress)
		if err := http.ListenAndServe(cfg.GatewayAddress, router); err != nil {
			logger.Error("gateway stopped", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
}

// seedGenesis applies the issuance parameter file exactly once per data
// directory.
func seedGenesis(manager *state.Manager, engine *pass.Engine, settlement *bank.Ledger, owner [20]byte, path string, logger *slog.Logger) error {
	applied := false
	if err := manager.InTransaction(func() error {
		var err error
		applied, err = manager.KVHas(genesisAppliedKey)
		return err
	}); err != nil {
		return err
	}
	if applied {
		return nil
	}

	genesis, err := config.LoadGenesis(path)
	if err != nil {
		return err
	}

	if genesis.FeeRecipient != "" {
		recipient, err := config.ParseAddress(genesis.FeeRecipient)
		if err != nil {
			return fmt.Errorf("fee recipient: %w", err)
		}
		if err := engine.SetFeeRecipient(owner, recipient); err != nil {
			return err
		}
	}
	if genesis.Authority != "" {
		authority, err := config.ParseAddress(genesis.Authority)
		if err != nil {
			return fmt.Errorf("authority: %w", err)
		}
		if err := engine.SetAuthority(owner, authority); err != nil {
			return err
		}
	}
	root, err := config.ParseRoot(genesis.InitialMintRoot)
	if err != nil {
		return err
	}
	if err := engine.SetInitialMintRoot(owner, root); err != nil {
		return err
	}
	if err := engine.SetStartTime(owner, genesis.StartTime); err != nil {
		return err
	}
	if err := engine.SetPublicMintLimit(owner, genesis.PublicMintLimit); err != nil {
		return err
	}
	if err := engine.SetLevelCaps(owner, genesis.Level5CapPct, genesis.Level6CapPct); err != nil {
		return err
	}
	for campaignID, rootHex := range genesis.Campaigns {
		campaignRoot, err := config.ParseRoot(rootHex)
		if err != nil {
			return fmt.Errorf("campaign %s: %w", campaignID, err)
		}
		if err := engine.SetCampaignRoot(owner, campaignID, campaignRoot); err != nil {
			return err
		}
	}
	for _, currency := range genesis.Currencies {
		price, err := config.ParseAmount(currency.UnitPrice)
		if err != nil {
			return fmt.Errorf("currency %s: %w", currency.Symbol, err)
		}
		if err := engine.SetCurrency(owner, currency.Symbol, price); err != nil {
			return err
		}
	}
	for _, minimum := range genesis.MinUpgradePayments {
		amount, err := config.ParseAmount(minimum.Amount)
		if err != nil {
			return fmt.Errorf("min payment level %d: %w", minimum.ToLevel, err)
		}
		if err := engine.SetMinUpgradePayment(owner, minimum.ToLevel, minimum.Currency, amount); err != nil {
			return err
		}
	}
	for _, balance := range genesis.Balances {
		addr, err := config.ParseAddress(balance.Address)
		if err != nil {
			return fmt.Errorf("balance address %s: %w", balance.Address, err)
		}
		native, err := config.ParseAmount(balance.Native)
		if err != nil {
			return err
		}
		if native.Sign() > 0 {
			if err := settlement.CreditNative(addr, native); err != nil {
				return err
			}
		}
		for symbol, amountStr := range balance.Tokens {
			amount, err := config.ParseAmount(amountStr)
			if err != nil {
				return err
			}
			if amount.Sign() > 0 {
				if err := settlement.CreditToken(symbol, addr, amount); err != nil {
					return err
				}
			}
		}
	}

	if err := manager.InTransaction(func() error {
		return manager.KVPut(genesisAppliedKey, true)
	}); err != nil {
		return err
	}
	logger.Info("genesis applied", "path", path)
	return nil
}
