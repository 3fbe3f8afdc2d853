// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ToBaseUnits scales [amount] by 10^[decimals].
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: %s", ErrAmountNotPositive, amount)
	}
	if decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: %d > %d", ErrDecimalsOutOfRange, decimals, MaxDecimals)
	}
	units := amount.Shift(int32(decimals))
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s with %d decimals", ErrAmountPrecision, amount, decimals)
	}
	if units.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("%w: %s base units", ErrDecimalOverflow, units)
	}
	return units.BigInt().Uint64(), nil
}

// FromBaseUnits scales [units] down by 10^[decimals].
func FromBaseUnits(units uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals))
}

// AddSupply returns [supply] + [amount] or ErrSupplyOverflow.
func AddSupply(supply, amount uint64) (uint64, error) {
	if amount > math.MaxUint64-supply {
		return 0, fmt.Errorf("%w: %d + %d", ErrSupplyOverflow, supply, amount)
	}
	return supply + amount, nil
}
