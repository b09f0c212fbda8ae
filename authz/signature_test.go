package authz

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPersonal(t *testing.T, hash common.Hash) ([]byte, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	digest := SigningDigest(hash)
	sig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)
	return sig, crypto.PubkeyToAddress(key.PublicKey)
}

func TestRecoverAcceptsBothVForms(t *testing.T) {
	hash := crypto.Keccak256Hash([]byte("authorization"))
	sig, addr := signPersonal(t, hash)

	got, err := RecoverSigner(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	legacy := append([]byte{}, sig...)
	legacy[64] += 27
	got, err = RecoverSigner(hash, legacy)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestRecoverWithoutPrefixYieldsDifferentSigner(t *testing.T) {
	hash := crypto.Keccak256Hash([]byte("authorization"))
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	// 直接对 hash 签名（没有 EIP-191 前缀）是另一种约定，恢复结果不会是签名者
	raw, err := crypto.Sign(hash[:], key)
	require.NoError(t, err)
	got, err := RecoverSigner(hash, raw)
	if err == nil {
		assert.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey), got)
	}
}

func TestRecoverRejectsMalformed(t *testing.T) {
	hash := crypto.Keccak256Hash([]byte("authorization"))
	sig, _ := signPersonal(t, hash)

	_, err := RecoverSigner(hash, sig[:64])
	assert.ErrorIs(t, err, ErrInvalidSignature)

	badV := append([]byte{}, sig...)
	badV[64] = 5
	_, err = RecoverSigner(hash, badV)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	zero := make([]byte, SignatureLength)
	_, err = RecoverSigner(hash, zero)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestRecoverRejectsHighS(t *testing.T) {
	hash := crypto.Keccak256Hash([]byte("authorization"))
	sig, _ := signPersonal(t, hash)

	// s' = n - s, v' = v ^ 1：同一公钥的可塑签名
	n := crypto.S256().Params().N
	s := new(big.Int).SetBytes(sig[32:64])
	high := new(big.Int).Sub(n, s)
	malleable := append([]byte{}, sig...)
	copy(malleable[32:64], common.LeftPadBytes(high.Bytes(), 32))
	malleable[64] ^= 1

	_, err := RecoverSigner(hash, malleable)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
