// authz/signature.go
// 签名约定（签名方与验证方必须完全一致）：
//
//	digest    = keccak256("\x19Ethereum Signed Message:\n32" || authHash)   // EIP-191 personal_sign
//	signature = r(32) || s(32) || v(1)，v ∈ {27, 28}，同时兼容 {0, 1}
//
// s 必须位于曲线阶的下半区，高 s 的可塑签名一律视为无效。

package authz

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength 可恢复签名长度
const SignatureLength = crypto.SignatureLength

// SigningDigest 对授权哈希加 EIP-191 前缀后再哈希，得到实际被签名的摘要
func SigningDigest(authHash common.Hash) common.Hash {
	return common.BytesToHash(accounts.TextHash(authHash[:]))
}

// RecoverSigner 从签名恢复出签名者地址
func RecoverSigner(authHash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(normalized[64], r, s, true) {
		return common.Address{}, fmt.Errorf("%w: malformed r/s/v", ErrInvalidSignature)
	}

	digest := SigningDigest(authHash)
	pub, err := crypto.SigToPub(digest[:], normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
