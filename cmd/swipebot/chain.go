package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/swipebot/config"
	"github.com/alejandrodnm/swipebot/internal/adapters/onchain"
	"github.com/alejandrodnm/swipebot/internal/adapters/paper"
	"github.com/alejandrodnm/swipebot/internal/ports"
	"github.com/shopspring/decimal"
)

const paperUser = "0x000000000000000000000000000000000000dead"

// chainDeps agrupa los adapters de ejecución de un modo (live o paper).
type chainDeps struct {
	calls       ports.CallBuilder
	submitter   ports.Submitter
	allowance   ports.AllowanceChecker
	defaultUser string
	close       func()
}

func setupChain(ctx context.Context, cfg *config.Config, dryRun bool) (*chainDeps, error) {
	calls := onchain.NewCallBuilder(0)

	if dryRun {
		slog.Info("[PAPER] simulated submissions", "budget_usdc", cfg.Paper.BudgetUSDC, "confirm_delay", cfg.PaperConfirmDelay())
		return &chainDeps{
			calls:       calls,
			submitter:   paper.NewSubmitter(cfg.PaperConfirmDelay()),
			allowance:   paper.NewAllowance(decimal.NewFromFloat(cfg.Paper.BudgetUSDC)),
			defaultUser: paperUser,
			close:       func() {},
		}, nil
	}

	if cfg.Chain.PrivateKey == "" {
		return nil, errors.New("SWIPE_PRIVATE_KEY is required (or use -dry-run)")
	}
	if cfg.Chain.ProxyWallet == "" {
		return nil, errors.New("chain.proxy_wallet / SWIPE_PROXY_WALLET is required (or use -dry-run)")
	}

	client, err := onchain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, err
	}

	submitter, err := onchain.NewSubmitter(client, cfg.Chain.PrivateKey, onchain.SubmitterConfig{
		ChainID:      cfg.Chain.ChainID,
		Factory:      cfg.Chain.ProxyFactory,
		PollInterval: cfg.PollInterval(),
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("setupChain: %w", err)
	}

	allowance, err := onchain.NewAllowanceChecker(client, cfg.Chain.Collateral, cfg.Chain.ProxyWallet)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("setupChain: %w", err)
	}

	slog.Info("chain connected",
		"rpc", cfg.Chain.RPCURL,
		"chain_id", cfg.Chain.ChainID,
		"signer", submitter.Address(),
		"proxy_wallet", cfg.Chain.ProxyWallet,
	)
	return &chainDeps{
		calls:       calls,
		submitter:   submitter,
		allowance:   allowance,
		defaultUser: submitter.Address(),
		close:       client.Close,
	}, nil
}
