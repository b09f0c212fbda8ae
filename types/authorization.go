// types/authorization.go
// 提现授权值对象：由指定签名者离线构造并签名，链上只保留其哈希

package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

var (
	// ErrNilAuthorization 授权为空
	ErrNilAuthorization = errors.New("authorization is nil")
	// ErrFieldMissing 授权字段缺失
	ErrFieldMissing = errors.New("authorization field missing")
	// ErrFieldOutOfRange 授权字段不在 uint256 范围内
	ErrFieldOutOfRange = errors.New("authorization field out of uint256 range")
)

// Authorization 一次提现的授权描述
// 字段顺序即规范编码顺序：vault, recipient, amount, nonce, networkId
type Authorization struct {
	Vault     common.Address `json:"vault"`
	Recipient common.Address `json:"recipient"`
	Amount    *big.Int       `json:"amount"`
	Nonce     *big.Int       `json:"nonce"`
	NetworkID *big.Int       `json:"networkId"`
}

// Validate 检查三个整数字段都存在且落在 [0, 2^256-1]
func (a *Authorization) Validate() error {
	if a == nil {
		return ErrNilAuthorization
	}
	fields := []struct {
		name string
		v    *big.Int
	}{
		{"amount", a.Amount},
		{"nonce", a.Nonce},
		{"networkId", a.NetworkID},
	}
	for _, f := range fields {
		if f.v == nil {
			return fmt.Errorf("%w: %s", ErrFieldMissing, f.name)
		}
		if f.v.Sign() < 0 || f.v.Cmp(math.MaxBig256) > 0 {
			return fmt.Errorf("%w: %s=%s", ErrFieldOutOfRange, f.name, f.v.String())
		}
	}
	return nil
}

// Copy 深拷贝，避免调用方后续修改 big.Int 影响已提交的授权
func (a *Authorization) Copy() *Authorization {
	if a == nil {
		return nil
	}
	return &Authorization{
		Vault:     a.Vault,
		Recipient: a.Recipient,
		Amount:    copyBig(a.Amount),
		Nonce:     copyBig(a.Nonce),
		NetworkID: copyBig(a.NetworkID),
	}
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// VaultState Vault 的记账视图
// 不变式：CurrentBalance == TotalDeposited - TotalWithdrawn
type VaultState struct {
	TotalDeposited *big.Int `json:"totalDeposited"`
	TotalWithdrawn *big.Int `json:"totalWithdrawn"`
	CurrentBalance *big.Int `json:"currentBalance"`
}

// ParseAddress 解析 0x 开头的 20 字节地址
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// ParseUint256 解析十进制或 0x 十六进制的 uint256
func ParseUint256(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty uint256")
	}
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("invalid uint256 %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative uint256 %q", s)
	}
	return v, nil
}
