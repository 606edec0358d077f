package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alejandrodnm/swipebot/internal/adapters/notify"
	"github.com/alejandrodnm/swipebot/internal/adapters/storage"
	"github.com/alejandrodnm/swipebot/internal/application/swipe"
	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/alejandrodnm/swipebot/internal/ports"
	"github.com/shopspring/decimal"
)

const helpText = `commands:
  y <market> [stake]   swipe YES (market = condition id or # from the feed)
  n <market> [stake]   swipe NO
  flush                submit the pending batch now
  markets              refresh and show the feed
  positions            show confirmed positions
  status               show pending and in-flight state
  quit                 drop pending swipes and exit`

type commandKind int

const (
	cmdSwipe commandKind = iota
	cmdFlush
	cmdMarkets
	cmdPositions
	cmdStatus
	cmdHelp
	cmdQuit
)

type command struct {
	kind   commandKind
	side   domain.Side
	market string
	stake  decimal.Decimal // zero = default stake
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{kind: cmdHelp}, nil
	}

	switch strings.ToLower(fields[0]) {
	case "flush", "f":
		return command{kind: cmdFlush}, nil
	case "markets", "m":
		return command{kind: cmdMarkets}, nil
	case "positions", "p":
		return command{kind: cmdPositions}, nil
	case "status", "s":
		return command{kind: cmdStatus}, nil
	case "help", "h", "?":
		return command{kind: cmdHelp}, nil
	case "quit", "q", "exit":
		return command{kind: cmdQuit}, nil
	}

	side, err := domain.ParseSide(fields[0])
	if err != nil {
		return command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	if len(fields) < 2 {
		return command{}, errors.New("missing market")
	}
	cmd := command{kind: cmdSwipe, side: side, market: fields[1]}
	if len(fields) > 2 {
		stake, err := decimal.NewFromString(fields[2])
		if err != nil {
			return command{}, fmt.Errorf("invalid stake %q", fields[2])
		}
		cmd.stake = stake
	}
	return cmd, nil
}

// repl es el front-end de consola: cada línea es un swipe o un comando.
type repl struct {
	ctx          context.Context
	user         string
	manager      *swipe.Manager
	markets      ports.MarketStore
	store        *storage.SQLiteStorage
	console      *notify.Console
	defaultStake decimal.Decimal
	in           io.Reader
	out          io.Writer

	feed []domain.Market
}

func (r *repl) run() error {
	session, err := r.manager.Session(r.user)
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, helpText)
	r.refreshFeed()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Fprint(r.out, "> ")
		var line string
		var ok bool
		select {
		case <-r.ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		cmd, err := parseCommand(line)
		if err != nil {
			fmt.Fprintln(r.out, err)
			continue
		}

		switch cmd.kind {
		case cmdQuit:
			return nil
		case cmdHelp:
			fmt.Fprintln(r.out, helpText)
		case cmdFlush:
			session.Flush()
		case cmdMarkets:
			r.refreshFeed()
		case cmdPositions:
			if err := printPositions(r.ctx, r.store, r.markets, r.console, r.user); err != nil {
				fmt.Fprintln(r.out, err)
			}
		case cmdStatus:
			fmt.Fprintf(r.out, "pending: %d, in flight: %t, receipts processed: %d\n",
				session.Pending(), session.InFlight(), session.ProcessedReceipts())
		case cmdSwipe:
			r.swipe(session, cmd)
		}
	}
}

func (r *repl) swipe(session *swipe.Session, cmd command) {
	marketID, err := r.resolveMarket(cmd.market)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	stake := cmd.stake
	if stake.IsZero() {
		stake = r.defaultStake
	}

	in, err := session.Swipe(r.ctx, marketID, cmd.side, stake)
	if err != nil {
		fmt.Fprintf(r.out, "rejected: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "%s $%s on %s\n", in.Side, in.Stake.StringFixed(2), domain.TruncateQuestion(in.Question, in.MarketID, 50))
}

// resolveMarket acepta "#3" / "3" (posición en el feed) o un condition id.
func (r *repl) resolveMarket(ref string) (string, error) {
	if strings.HasPrefix(ref, "0x") {
		return ref, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(ref, "#"))
	if err != nil || n < 1 || n > len(r.feed) {
		return "", fmt.Errorf("unknown market %q (run 'markets')", ref)
	}
	return r.feed[n-1].ConditionID, nil
}

func (r *repl) refreshFeed() {
	markets, err := r.markets.ListActiveMarkets(r.ctx)
	if err != nil {
		fmt.Fprintf(r.out, "could not load markets: %v\n", err)
		return
	}
	if len(markets) > 20 {
		markets = markets[:20]
	}
	r.feed = markets
	r.console.PrintMarkets(markets)
}
