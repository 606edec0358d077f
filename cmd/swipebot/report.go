package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/swipebot/internal/adapters/notify"
	"github.com/alejandrodnm/swipebot/internal/adapters/storage"
	"github.com/alejandrodnm/swipebot/internal/ports"
)

func runReport(ctx context.Context, store *storage.SQLiteStorage, markets ports.MarketStore, console *notify.Console, user string) error {
	if user != "" {
		if err := printPositions(ctx, store, markets, console, user); err != nil {
			return err
		}
	}

	unresolved, err := store.ListUnresolvedSubmissions(ctx, user)
	if err != nil {
		return fmt.Errorf("runReport: %w", err)
	}
	console.PrintUnresolved(unresolved)
	return nil
}

func printPositions(ctx context.Context, store *storage.SQLiteStorage, markets ports.MarketStore, console *notify.Console, user string) error {
	positions, err := store.ListPositions(ctx, user)
	if err != nil {
		return fmt.Errorf("printPositions: %w", err)
	}

	questions := make(map[string]string, len(positions))
	for _, p := range positions {
		m, err := markets.GetMarket(ctx, p.MarketID)
		if err != nil {
			slog.Debug("report: market lookup failed", "market", p.MarketID, "err", err)
			continue
		}
		questions[p.MarketID] = m.Question
	}
	console.PrintPositions(positions, questions)
	return nil
}
