package signer

import (
	"authvault/authz"
	"authvault/types"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hardhat 默认第 0 个账户
const hardhatKey0 = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testAuthorization() *types.Authorization {
	return &types.Authorization{
		Vault:     common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		Recipient: common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
		Amount:    types.MustParseUnits("0.5"),
		Nonce:     big.NewInt(1),
		NetworkID: big.NewInt(31337),
	}
}

func TestNewFromHex(t *testing.T) {
	s, err := New("0x" + hardhatKey0)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), s.Address())
}

func TestNewFromWIF(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	wif, err := btcutil.NewWIF(priv, &chaincfg.MainNetParams, true)
	require.NoError(t, err)

	fromWIF, err := New(wif.String())
	require.NoError(t, err)
	fromHex, err := New(common.Bytes2Hex(priv.Serialize()))
	require.NoError(t, err)

	assert.Equal(t, fromHex.Address(), fromWIF.Address())
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("zz")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = New("abcd")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = New("0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewRejectsScalarsOutsideCurveOrder(t *testing.T) {
	for _, k := range []string{
		"fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", // N
		"fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364142", // N+1，取模后为 1
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
	} {
		_, err := New(k)
		assert.ErrorIs(t, err, ErrInvalidKey, k)
	}

	// N-1 是最大的合法私钥
	_, err := New("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364140")
	assert.NoError(t, err)
}

func TestSignRecoversToSigner(t *testing.T) {
	s, err := Generate()
	require.NoError(t, err)

	auth := testAuthorization()
	sig, err := s.Sign(auth)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	hash, err := authz.HashAuthorization(auth)
	require.NoError(t, err)
	got, err := authz.RecoverSigner(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), got)
}

func TestSignMatchesPersonalSign(t *testing.T) {
	s, err := New(hardhatKey0)
	require.NoError(t, err)

	hash, err := authz.HashAuthorization(testAuthorization())
	require.NoError(t, err)
	sig, err := s.SignHash(hash)
	require.NoError(t, err)

	// 按 personal_sign 的定义独立计算摘要并恢复公钥
	prefixed := append([]byte("\x19Ethereum Signed Message:\n32"), hash[:]...)
	digest := crypto.Keccak256(prefixed)
	raw := append([]byte{}, sig...)
	raw[64] -= 27
	pub, err := crypto.SigToPub(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), crypto.PubkeyToAddress(*pub))
}
