package onchain

import (
	"fmt"
	"math/big"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// CallBuilder packs FPMM buy calls. It implements ports.CallBuilder.
type CallBuilder struct {
	decimals int32
}

// NewCallBuilder creates a builder for a collateral with the given decimals.
// decimals <= 0 means USDC.e (6).
func NewCallBuilder(decimals int32) *CallBuilder {
	if decimals <= 0 {
		decimals = collateralDecimals
	}
	return &CallBuilder{decimals: decimals}
}

// Build returns the buy(investmentAmount, outcomeIndex, 0) call on the
// market's FPMM. No slippage bound is set.
func (b *CallBuilder) Build(target domain.SettlementTarget, side domain.Side, stake decimal.Decimal) (domain.CallDescriptor, error) {
	if !common.IsHexAddress(target.Contract) {
		return domain.CallDescriptor{}, fmt.Errorf("onchain.Build: invalid contract %q", target.Contract)
	}
	if side != domain.SideYes && side != domain.SideNo {
		return domain.CallDescriptor{}, fmt.Errorf("onchain.Build: unknown side %q", side)
	}
	amount, err := toUnits(stake, b.decimals)
	if err != nil {
		return domain.CallDescriptor{}, fmt.Errorf("onchain.Build: %w", err)
	}

	data, err := fpmmABI.Pack("buy", amount, big.NewInt(int64(side.OutcomeIndex())), big.NewInt(0))
	if err != nil {
		return domain.CallDescriptor{}, fmt.Errorf("onchain.Build: pack: %w", err)
	}
	return domain.CallDescriptor{
		To:   common.HexToAddress(target.Contract).Hex(),
		Data: data,
	}, nil
}

// toUnits scales a collateral amount to integer token units.
func toUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount %s: %w", amount, domain.ErrInvalidStake)
	}
	scaled := amount.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimals: %w", amount, decimals, domain.ErrInvalidStake)
	}
	return scaled.BigInt(), nil
}
