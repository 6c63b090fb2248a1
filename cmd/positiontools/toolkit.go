package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"positionTools/internal/chain"
	"positionTools/internal/config"
	"positionTools/internal/engine"
	"positionTools/internal/model"
	"positionTools/internal/poolview"
	"positionTools/internal/registry"
	"positionTools/internal/storage"
	"positionTools/internal/storage/postgres"
	"positionTools/internal/swaprouter"
	"positionTools/internal/token"
)

// toolkit bundles everything a mutation command needs: chain access, the
// contract adapters, the engine, and the operation log sink.
type toolkit struct {
	cfg      config.Config
	logger   *zap.Logger
	client   *chain.Client
	registry *registry.Adapter
	pools    *poolview.Reader
	tokens   *token.Service
	mutator  *engine.Mutator
	store    storage.Storage
	pg       *postgres.Store
}

func newToolkit(ctx context.Context, cmd *cobra.Command) (*toolkit, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}
	manager, err := parseAddress(cfg.PositionManager, "position-manager")
	if err != nil {
		return nil, err
	}
	factory, err := parseAddress(cfg.Factory, "factory")
	if err != nil {
		return nil, err
	}
	router, err := parseAddress(cfg.Router, "router")
	if err != nil {
		return nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	sender, err := chain.NewTxSender(ctx, client, cfg.PrivateKey, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	registryAdapter, err := registry.NewAdapter(client, sender, manager, cfg.Deadline, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	pools, err := poolview.NewReader(client, factory, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	tokens, err := token.NewService(client, sender, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	swapper, err := swaprouter.NewAdapter(client, sender, router, cfg.Deadline, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	mutator, err := engine.NewMutator(engine.MutatorConfig{
		Registry:  registryAdapter,
		Pools:     pools,
		Tokens:    tokens,
		Swapper:   swapper,
		Self:      sender.From(),
		OpTimeout: cfg.OpTimeout,
		Logger:    logger,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	tk := &toolkit{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		registry: registryAdapter,
		pools:    pools,
		tokens:   tokens,
		mutator:  mutator,
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		tk.pg = store
		tk.store = store
	} else {
		tk.store = storage.NewJsonlStorage(cfg.Out)
	}

	return tk, nil
}

func (t *toolkit) Close() {
	if t.pg != nil {
		t.pg.Close()
	}
	if t.client != nil {
		t.client.Close()
	}
	t.logger.Sync()
}

// record persists one operation record. A sink failure is logged but never
// fails the already-executed operation.
func (t *toolkit) record(ctx context.Context, rec model.OperationRecord) {
	if err := t.store.PutOperationBatch(ctx, []model.OperationRecord{rec}); err != nil {
		t.logger.Warn("operation log write failed", zap.Error(err))
	}
}

func parseAddress(value, name string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("%s address is required", name)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s address %q is not a valid hex address", name, value)
	}
	return common.HexToAddress(value), nil
}
