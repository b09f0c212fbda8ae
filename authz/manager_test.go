package authz_test

import (
	"authvault/authz"
	"authvault/chain"
	"authvault/config"
	"authvault/db"
	"authvault/signer"
	"authvault/types"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNetworkID = 31337

var (
	deployer  = common.HexToAddress("0x00000000000000000000000000000000000d3910")
	vaultAddr = common.HexToAddress("0x000000000000000000000000000000000000Fa17")
	recipient = common.HexToAddress("0x000000000000000000000000000000000000beef")
)

type harness struct {
	chain  *chain.Chain
	store  *db.Manager
	mgr    *authz.Manager
	signer *signer.Signer
}

func newHarness(t *testing.T, bind bool) *harness {
	t.Helper()
	store, err := db.NewManager(config.DatabaseConfig{InMemory: true, CacheSize: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := chain.New(config.NetworkConfig{Name: "test", ID: testNetworkID}, store)
	s, err := signer.Generate()
	require.NoError(t, err)

	h := &harness{chain: c, store: store, signer: s}
	require.NoError(t, c.Execute(deployer, func(tx *chain.Tx) error {
		h.mgr, err = authz.Deploy(tx, deployer, s.Address())
		if err != nil || !bind {
			return err
		}
		return h.mgr.BindVault(tx, vaultAddr)
	}))
	return h
}

func (h *harness) auth(nonce int64) *types.Authorization {
	return &types.Authorization{
		Vault:     vaultAddr,
		Recipient: recipient,
		Amount:    big.NewInt(1000),
		Nonce:     big.NewInt(nonce),
		NetworkID: big.NewInt(testNetworkID),
	}
}

// consumeAs 以 caller 身份调用 VerifyAndConsume
func (h *harness) consumeAs(caller common.Address, auth *types.Authorization, sig []byte) (common.Hash, error) {
	var hash common.Hash
	err := h.chain.Execute(caller, func(tx *chain.Tx) error {
		var err error
		hash, err = h.mgr.VerifyAndConsume(tx, auth, sig, tx.NetworkID())
		return err
	})
	return hash, err
}

func (h *harness) consumed(t *testing.T, auth *types.Authorization) bool {
	t.Helper()
	hash, err := authz.HashAuthorization(auth)
	require.NoError(t, err)
	var ok bool
	require.NoError(t, h.chain.View(func(tx *chain.Tx) error {
		ok, err = h.mgr.IsConsumed(tx, hash)
		return err
	}))
	return ok
}

func TestDeployRejectsZeroSigner(t *testing.T) {
	h := newHarness(t, false)
	err := h.chain.Execute(deployer, func(tx *chain.Tx) error {
		_, err := authz.Deploy(tx, deployer, common.Address{})
		return err
	})
	assert.ErrorIs(t, err, authz.ErrInvalidAddress)
}

func TestLifecycle(t *testing.T) {
	h := newHarness(t, false)

	require.NoError(t, h.chain.View(func(tx *chain.Tx) error {
		st, err := h.mgr.Status(tx)
		require.NoError(t, err)
		assert.Equal(t, authz.StatusConfigured, st)

		signerAddr, err := h.mgr.Signer(tx)
		require.NoError(t, err)
		assert.Equal(t, h.signer.Address(), signerAddr)

		_, bound, err := h.mgr.BoundVault(tx)
		require.NoError(t, err)
		assert.False(t, bound)
		return nil
	}))

	require.NoError(t, h.chain.Execute(deployer, func(tx *chain.Tx) error {
		return h.mgr.BindVault(tx, vaultAddr)
	}))

	require.NoError(t, h.chain.View(func(tx *chain.Tx) error {
		st, err := h.mgr.Status(tx)
		require.NoError(t, err)
		assert.Equal(t, authz.StatusBound, st)
		assert.Equal(t, "bound", st.String())
		return nil
	}))
}

func TestBindVaultOnlyOnce(t *testing.T) {
	h := newHarness(t, true)

	err := h.chain.Execute(deployer, func(tx *chain.Tx) error {
		return h.mgr.BindVault(tx, common.HexToAddress("0x1234"))
	})
	assert.ErrorIs(t, err, authz.ErrAlreadyBound)

	require.NoError(t, h.chain.View(func(tx *chain.Tx) error {
		bound, ok, err := h.mgr.BoundVault(tx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, vaultAddr, bound)
		return nil
	}))
}

func TestBindVaultValidation(t *testing.T) {
	h := newHarness(t, false)

	err := h.chain.Execute(deployer, func(tx *chain.Tx) error {
		return h.mgr.BindVault(tx, common.Address{})
	})
	assert.ErrorIs(t, err, authz.ErrInvalidAddress)

	stranger := common.HexToAddress("0x5757")
	err = h.chain.Execute(stranger, func(tx *chain.Tx) error {
		return h.mgr.BindVault(tx, vaultAddr)
	})
	assert.ErrorIs(t, err, authz.ErrNotDeployer)
}

func TestVerifyBeforeBindFails(t *testing.T) {
	h := newHarness(t, false)
	auth := h.auth(1)
	sig, err := h.signer.Sign(auth)
	require.NoError(t, err)

	_, err = h.consumeAs(vaultAddr, auth, sig)
	assert.ErrorIs(t, err, authz.ErrVaultNotBound)
}

func TestVerifyAndConsumeOnce(t *testing.T) {
	h := newHarness(t, true)
	auth := h.auth(1)
	sig, err := h.signer.Sign(auth)
	require.NoError(t, err)

	hash, err := h.consumeAs(vaultAddr, auth, sig)
	require.NoError(t, err)
	want, _ := authz.HashAuthorization(auth)
	assert.Equal(t, want, hash)
	assert.True(t, h.consumed(t, auth))

	_, err = h.consumeAs(vaultAddr, auth, sig)
	assert.ErrorIs(t, err, authz.ErrAlreadyConsumed)

	list, err := h.mgr.ListConsumed(h.store)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{want}, list)
}

func TestOnlyBoundVaultMayConsume(t *testing.T) {
	h := newHarness(t, true)
	auth := h.auth(2)
	sig, err := h.signer.Sign(auth)
	require.NoError(t, err)

	_, err = h.consumeAs(recipient, auth, sig)
	assert.ErrorIs(t, err, authz.ErrUnauthorizedCaller)
	assert.False(t, h.consumed(t, auth))
}

func TestVerifyRejections(t *testing.T) {
	h := newHarness(t, true)
	other, err := signer.Generate()
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(a *types.Authorization)
		signBy *signer.Signer
		want   error
	}{
		{"wrong signer", nil, other, authz.ErrInvalidSignature},
		{"foreign vault", func(a *types.Authorization) { a.Vault = common.HexToAddress("0x01") }, h.signer, authz.ErrInvalidVault},
		{"foreign network", func(a *types.Authorization) { a.NetworkID = big.NewInt(1) }, h.signer, authz.ErrChainIDMismatch},
		{"malformed", func(a *types.Authorization) { a.Amount = nil }, nil, authz.ErrInvalidAuthorization},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := h.auth(int64(100 + i))
			if tc.mutate != nil {
				tc.mutate(auth)
			}
			sig := make([]byte, authz.SignatureLength)
			if tc.signBy != nil {
				sig, err = tc.signBy.Sign(auth)
				require.NoError(t, err)
			}
			_, err := h.consumeAs(vaultAddr, auth, sig)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	list, err := h.mgr.ListConsumed(h.store)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSignatureForDifferentNonceRejected(t *testing.T) {
	h := newHarness(t, true)
	signed := h.auth(7)
	sig, err := h.signer.Sign(signed)
	require.NoError(t, err)

	// 签名与授权内容绑定：换 nonce 后同一签名恢复出别的地址
	_, err = h.consumeAs(vaultAddr, h.auth(8), sig)
	assert.ErrorIs(t, err, authz.ErrInvalidSignature)
}

func TestManagerRejectsValue(t *testing.T) {
	h := newHarness(t, true)
	err := h.chain.Execute(deployer, func(tx *chain.Tx) error {
		if err := tx.Mint(deployer, big.NewInt(10)); err != nil {
			return err
		}
		return tx.Transfer(deployer, h.mgr.Address(), big.NewInt(1))
	})
	assert.ErrorIs(t, err, chain.ErrNoReceiver)
}
