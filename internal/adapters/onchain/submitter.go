package onchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// Per-call gas when estimation fails
	buyGasLimit = uint64(250_000)

	gasPriceUpdateInterval = 5 * time.Minute
	defaultPollInterval    = 3 * time.Second
)

// chainClient is the subset of *ethclient.Client used by this package.
type chainClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// proxyCall mirrors the ProxyCall tuple of the factory.
type proxyCall struct {
	TypeCode uint8
	To       common.Address
	Value    *big.Int
	Data     []byte
}

// SubmitterConfig configures a Submitter.
type SubmitterConfig struct {
	ChainID      int64
	Factory      string
	PollInterval time.Duration
}

// Submitter signs one transaction per batch and follows it until it has a
// receipt. It implements ports.Submitter.
type Submitter struct {
	client       chainClient
	key          *ecdsa.PrivateKey
	address      common.Address
	chainID      *big.Int
	factory      common.Address
	pollInterval time.Duration

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewSubmitter creates a submitter signing with privateKeyHex (with or
// without 0x prefix).
func NewSubmitter(client chainClient, privateKeyHex string, cfg SubmitterConfig) (*Submitter, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("onchain.NewSubmitter: invalid private key: %w", err)
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = polygonChainID
	}
	if cfg.Factory == "" {
		cfg.Factory = proxyFactoryAddress
	}
	if !common.IsHexAddress(cfg.Factory) {
		return nil, fmt.Errorf("onchain.NewSubmitter: invalid factory %q", cfg.Factory)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Submitter{
		client:       client,
		key:          key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		chainID:      big.NewInt(cfg.ChainID),
		factory:      common.HexToAddress(cfg.Factory),
		pollInterval: cfg.PollInterval,
	}, nil
}

// Address returns the signer address, which is also the user id.
func (s *Submitter) Address() string {
	return s.address.Hex()
}

// Submit relays calls, in order, as a single proxy transaction signed by the
// user's key. The returned channel gets Pending right away, then Confirmed or
// Reverted once a receipt is mined, and is closed after that or when ctx is done.
func (s *Submitter) Submit(ctx context.Context, user string, calls []domain.CallDescriptor) (<-chan domain.StatusEvent, error) {
	if !strings.EqualFold(user, s.address.Hex()) {
		return nil, fmt.Errorf("onchain.Submit: no key for user %s", user)
	}
	if len(calls) == 0 {
		return nil, errors.New("onchain.Submit: empty batch")
	}

	pcs := make([]proxyCall, 0, len(calls))
	for i, c := range calls {
		if !common.IsHexAddress(c.To) {
			return nil, fmt.Errorf("onchain.Submit: call %d: invalid target %q", i, c.To)
		}
		pcs = append(pcs, proxyCall{
			TypeCode: proxyCallTypeCall,
			To:       common.HexToAddress(c.To),
			Value:    big.NewInt(0),
			Data:     c.Data,
		})
	}
	callData, err := proxyABI.Pack("proxy", pcs)
	if err != nil {
		return nil, fmt.Errorf("onchain.Submit: pack: %w", err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, fmt.Errorf("onchain.Submit: nonce: %w", err)
	}
	gasPrice := s.gasPrice(ctx)

	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     s.address,
		To:       &s.factory,
		GasPrice: gasPrice,
		Data:     callData,
	})
	if err != nil {
		gasLimit = buyGasLimit * uint64(len(calls))
		slog.Warn("onchain: gas estimate failed, using default", "err", err, "limit", gasLimit)
	}
	// Add 20% buffer
	gasLimit = gasLimit * 12 / 10

	tx := types.NewTransaction(nonce, s.factory, big.NewInt(0), gasLimit, gasPrice, callData)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("onchain.Submit: sign tx: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("onchain.Submit: send tx: %w", err)
	}

	txHash := signed.Hash()
	slog.Info("onchain: transaction sent", "tx", txHash.Hex(), "calls", len(calls), "nonce", nonce)

	events := make(chan domain.StatusEvent, 2)
	events <- domain.StatusEvent{Kind: domain.StatusPending, ReceiptID: txHash.Hex(), At: time.Now().UTC()}
	go s.track(ctx, txHash, events)
	return events, nil
}

// track polls for the receipt with no deadline other than ctx.
func (s *Submitter) track(ctx context.Context, txHash common.Hash, events chan<- domain.StatusEvent) {
	defer close(events)

	receipt, err := s.waitForReceipt(ctx, txHash)
	if err != nil {
		slog.Warn("onchain: stopped tracking transaction", "tx", txHash.Hex(), "err", err)
		return
	}

	ev := domain.StatusEvent{ReceiptID: txHash.Hex(), At: time.Now().UTC()}
	if receipt.Status == types.ReceiptStatusSuccessful {
		ev.Kind = domain.StatusConfirmed
		slog.Info("onchain: transaction confirmed", "tx", txHash.Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	} else {
		ev.Kind = domain.StatusReverted
		ev.Reason = "transaction reverted on-chain"
		slog.Warn("onchain: transaction reverted", "tx", txHash.Hex(), "block", receipt.BlockNumber)
	}

	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// waitForReceipt polls for a transaction receipt until mined or ctx is done.
func (s *Submitter) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := s.client.TransactionReceipt(ctx, txHash)
			if err == nil {
				return receipt, nil
			}
			if !errors.Is(err, ethereum.NotFound) {
				slog.Debug("onchain: receipt lookup failed", "tx", txHash.Hex(), "err", err)
			}
		}
	}
}

// gasPrice returns the current gas price, cached to avoid excessive RPC calls.
func (s *Submitter) gasPrice(ctx context.Context) *big.Int {
	s.mu.RLock()
	cached := s.cachedGasWei
	updatedAt := s.gasUpdatedAt
	s.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceUpdateInterval {
		return cached
	}

	price, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached
		}
		return big.NewInt(30_000_000_000) // 30 gwei fallback
	}

	// Add 10% buffer for faster inclusion
	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	s.mu.Lock()
	s.cachedGasWei = buffered
	s.gasUpdatedAt = time.Now()
	s.mu.Unlock()

	return buffered
}
