package types

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

// safe_math.go 提供带溢出检查的 big.Int 运算
// 用于账本余额与 Vault 累计值的安全运算

var (
	// ErrOverflow 加法溢出错误
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrUnderflow 减法下溢错误（结果为负数）
	ErrUnderflow = errors.New("arithmetic underflow")
	// ErrNegativeValue 参与运算的值为负
	ErrNegativeValue = errors.New("negative value not allowed")
)

// SafeAdd 安全加法：a + b，结果超过 2^256-1 时返回 ErrOverflow
func SafeAdd(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrNegativeValue
	}

	result := new(big.Int).Add(a, b)
	if result.Cmp(math.MaxBig256) > 0 {
		return nil, ErrOverflow
	}
	return result, nil
}

// SafeSub 安全减法：a - b，a < b 时返回 ErrUnderflow
func SafeSub(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	if a.Cmp(b) < 0 {
		return nil, ErrUnderflow
	}
	return new(big.Int).Sub(a, b), nil
}
