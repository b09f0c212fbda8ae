// types/units.go
// wei 与人类可读金额（18 位小数）之间的换算

package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals 原生币精度
const Decimals = 18

// ErrInvalidAmount 金额格式非法
var ErrInvalidAmount = errors.New("invalid amount")

// FormatUnits 将 wei 格式化为十进制字符串，例如 500000000000000000 -> "0.5"
func FormatUnits(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -Decimals).String()
}

// ParseUnits 将十进制金额解析为 wei，精度超过 18 位或为负数时报错
func ParseUnits(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, s)
	}
	wei := d.Shift(Decimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimals in %s", ErrInvalidAmount, Decimals, s)
	}
	return wei.BigInt(), nil
}

// MustParseUnits 仅用于常量和测试
func MustParseUnits(s string) *big.Int {
	v, err := ParseUnits(s)
	if err != nil {
		panic(err)
	}
	return v
}
