// signer/signer.go
// 指定签名者的离线签名工具：加载私钥、对授权哈希做 EIP-191 签名

package signer

import (
	"authvault/authz"
	"authvault/types"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidKey 私钥既不是合法 WIF 也不是 32 字节十六进制，或标量不在 [1, N-1]
var ErrInvalidKey = errors.New("invalid private key")

// Signer 持有指定签名者私钥
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// ParseSecp256k1PrivateKey 同时支持 WIF 或 16 进制的32字节私钥字符串（可带 0x 前缀）
func ParseSecp256k1PrivateKey(keyStr string) (*secp256k1.PrivateKey, error) {
	keyStr = strings.TrimSpace(keyStr)

	// 1) 尝试当作WIF解析
	if wif, err := btcutil.DecodeWIF(keyStr); err == nil {
		return wif.PrivKey, nil
	}

	// 2) 如果不是WIF，则尝试按Hex进行解析
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(keyStr, "0x"), "0X"))
	if err != nil {
		return nil, fmt.Errorf("%w: neither WIF nor hex: %v", ErrInvalidKey, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: hex key must be 32 bytes, got %d", ErrInvalidKey, len(raw))
	}

	// PrivKeyFromBytes 会把 >= N 的标量静默取模，这里先拒绝
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow {
		return nil, fmt.Errorf("%w: scalar not below curve order", ErrInvalidKey)
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("%w: zero scalar", ErrInvalidKey)
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}

// New 从私钥字符串创建签名者
func New(keyStr string) (*Signer, error) {
	priv, err := ParseSecp256k1PrivateKey(keyStr)
	if err != nil {
		return nil, err
	}
	return fromSecp256k1(priv)
}

// Generate 生成一个随机签名者（devnet / 测试）
func Generate() (*Signer, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return fromSecp256k1(priv)
}

func fromSecp256k1(priv *secp256k1.PrivateKey) (*Signer, error) {
	key, err := crypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address 签名者地址
func (s *Signer) Address() common.Address { return s.address }

// SignHash 对授权哈希签名，返回 r||s||v，v ∈ {27, 28}
func (s *Signer) SignHash(authHash common.Hash) ([]byte, error) {
	digest := authz.SigningDigest(authHash)
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("sign failed: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// Sign 计算授权哈希并签名
func (s *Signer) Sign(auth *types.Authorization) ([]byte, error) {
	hash, err := authz.HashAuthorization(auth)
	if err != nil {
		return nil, err
	}
	return s.SignHash(hash)
}
