// authz/hash.go
// 授权的规范编码与哈希
//
// 编码：abi.encode(address vault, address recipient, uint256 amount, uint256 nonce, uint256 networkId)
// 即 5 个 32 字节大端字，地址左侧补零；哈希：keccak256(编码)

package authz

import (
	"authvault/types"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// EncodedLength 规范编码长度
const EncodedLength = 5 * 32

var authorizationArgs = abi.Arguments{
	{Name: "vault", Type: mustType("address")},
	{Name: "recipient", Type: mustType("address")},
	{Name: "amount", Type: mustType("uint256")},
	{Name: "nonce", Type: mustType("uint256")},
	{Name: "networkId", Type: mustType("uint256")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", t, err))
	}
	return typ
}

// Encode 按固定字段顺序编码授权
func Encode(auth *types.Authorization) ([]byte, error) {
	if err := auth.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAuthorization, err)
	}
	enc, err := authorizationArgs.Pack(auth.Vault, auth.Recipient, auth.Amount, auth.Nonce, auth.NetworkID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAuthorization, err)
	}
	return enc, nil
}

// HashAuthorization 计算授权哈希，既是签名消息也是防重放键
func HashAuthorization(auth *types.Authorization) (common.Hash, error) {
	enc, err := Encode(auth)
	if err != nil {
		return common.Hash{}, err
	}
	return keccak256(enc), nil
}

func keccak256(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}
