// Package onchain talks to Polygon: it packs FPMM buy calls, relays a batch
// of them as one transaction through the proxy wallet factory and reads the
// proxy wallet's ERC20 allowances.
package onchain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	polygonChainID = int64(137)

	// USDC.e collateral on Polygon
	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	// Polymarket proxy wallet factory. proxy() runs every call from the
	// sender's proxy wallet, in order, and reverts as a whole if one fails.
	proxyFactoryAddress = "0xaB45c5A4B0c941a2F231C04C3f49182e1A254052"

	collateralDecimals = int32(6)

	// proxyCallTypeCall is the CALL type code of a ProxyCall.
	proxyCallTypeCall = uint8(1)
)

var (
	fpmmABI  abi.ABI
	proxyABI abi.ABI
	erc20ABI abi.ABI
)

func init() {
	var err error

	fpmmABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "buy",
			"type": "function",
			"inputs": [
				{"name": "investmentAmount", "type": "uint256"},
				{"name": "outcomeIndex", "type": "uint256"},
				{"name": "minOutcomeTokensToBuy", "type": "uint256"}
			],
			"outputs": []
		}
	]`))
	if err != nil {
		panic("fpmm abi parse: " + err.Error())
	}

	proxyABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "proxy",
			"type": "function",
			"stateMutability": "payable",
			"inputs": [
				{
					"name": "calls",
					"type": "tuple[]",
					"components": [
						{"name": "typeCode", "type": "uint8"},
						{"name": "to", "type": "address"},
						{"name": "value", "type": "uint256"},
						{"name": "data", "type": "bytes"}
					]
				}
			],
			"outputs": [{"name": "returnValues", "type": "bytes[]"}]
		}
	]`))
	if err != nil {
		panic("proxy abi parse: " + err.Error())
	}

	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "allowance",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("erc20 abi parse: " + err.Error())
	}
}
