package onchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// AllowanceChecker reads the collateral allowance the user's proxy wallet
// granted to each FPMM a batch buys from. proxy() runs every buy with the
// wallet as msg.sender, so the wallet is the owner and the FPMM the spender.
// It implements ports.AllowanceChecker.
type AllowanceChecker struct {
	client   chainClient
	token    common.Address
	wallet   common.Address
	decimals int32
}

// NewAllowanceChecker creates a checker for the proxy wallet. An empty token
// defaults to USDC.e.
func NewAllowanceChecker(client chainClient, token, proxyWallet string) (*AllowanceChecker, error) {
	if token == "" {
		token = usdcEAddress
	}
	if !common.IsHexAddress(token) || !common.IsHexAddress(proxyWallet) {
		return nil, fmt.Errorf("onchain.NewAllowanceChecker: invalid address token=%q wallet=%q", token, proxyWallet)
	}
	return &AllowanceChecker{
		client:   client,
		token:    common.HexToAddress(token),
		wallet:   common.HexToAddress(proxyWallet),
		decimals: collateralDecimals,
	}, nil
}

// IsSufficient reports whether, for every contract the intents call, the
// wallet's allowance covers the stake sent to it.
func (a *AllowanceChecker) IsSufficient(ctx context.Context, user string, intents []domain.Intent) (bool, error) {
	for target, stake := range domain.StakeByTarget(intents) {
		if !common.IsHexAddress(target) {
			return false, fmt.Errorf("onchain.IsSufficient: %s: invalid spender %q", user, target)
		}
		allowance, err := a.allowance(ctx, common.HexToAddress(target))
		if err != nil {
			return false, fmt.Errorf("onchain.IsSufficient: %s: %w", user, err)
		}
		need := stake.Shift(a.decimals).Ceil().BigInt()
		if allowance.Cmp(need) < 0 {
			return false, nil
		}
	}
	return true, nil
}

func (a *AllowanceChecker) allowance(ctx context.Context, spender common.Address) (*big.Int, error) {
	callData, err := erc20ABI.Pack("allowance", a.wallet, spender)
	if err != nil {
		return nil, err
	}

	result, err := a.client.CallContract(ctx, ethereum.CallMsg{
		To:   &a.token,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call allowance %s: %w", spender.Hex(), err)
	}

	vals, err := erc20ABI.Unpack("allowance", result)
	if err != nil {
		return nil, fmt.Errorf("unpack allowance: %w", err)
	}
	if len(vals) == 0 {
		return big.NewInt(0), nil
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type %T", vals[0])
	}
	return v, nil
}
