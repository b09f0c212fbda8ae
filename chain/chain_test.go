package chain

import (
	"authvault/config"
	"authvault/db"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	store, err := db.NewManager(config.DatabaseConfig{InMemory: true, CacheSize: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(config.NetworkConfig{Name: "test", ID: 31337}, store)
}

func fund(t *testing.T, c *Chain, addr common.Address, amount int64) {
	t.Helper()
	require.NoError(t, c.Execute(addr, func(tx *Tx) error {
		return tx.Mint(addr, big.NewInt(amount))
	}))
}

func balance(t *testing.T, c *Chain, addr common.Address) int64 {
	t.Helper()
	bal, err := c.BalanceOf(addr)
	require.NoError(t, err)
	return bal.Int64()
}

// recordingReceiver 记录 Receive 时看到的调用者
type recordingReceiver struct {
	seenCaller common.Address
	seenFrom   common.Address
	seenOrigin common.Address
	fail       error
}

func (r *recordingReceiver) Receive(tx *Tx, from common.Address, amount *big.Int) error {
	r.seenCaller = tx.Caller()
	r.seenFrom = from
	r.seenOrigin = tx.Origin()
	return r.fail
}

func TestTransferMovesBalance(t *testing.T) {
	c := newTestChain(t)
	fund(t, c, alice, 100)

	require.NoError(t, c.Execute(alice, func(tx *Tx) error {
		return tx.Transfer(alice, bob, big.NewInt(40))
	}))

	assert.Equal(t, int64(60), balance(t, c, alice))
	assert.Equal(t, int64(40), balance(t, c, bob))
}

func TestTransferInsufficientBalanceCommitsNothing(t *testing.T) {
	c := newTestChain(t)
	fund(t, c, alice, 10)

	err := c.Execute(alice, func(tx *Tx) error {
		return tx.Transfer(alice, bob, big.NewInt(11))
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(10), balance(t, c, alice))
	assert.Equal(t, int64(0), balance(t, c, bob))
}

func TestTransferRejectsBadInput(t *testing.T) {
	c := newTestChain(t)
	fund(t, c, alice, 10)

	err := c.Execute(alice, func(tx *Tx) error {
		return tx.Transfer(alice, bob, big.NewInt(-1))
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	err = c.Execute(alice, func(tx *Tx) error {
		return tx.Transfer(alice, common.Address{}, big.NewInt(1))
	})
	assert.ErrorIs(t, err, ErrZeroAddress)
}

func TestDeployAddressFollowsCreateRule(t *testing.T) {
	c := newTestChain(t)

	var first, second common.Address
	require.NoError(t, c.Execute(alice, func(tx *Tx) error {
		var err error
		if first, err = tx.Deploy(alice, &recordingReceiver{}); err != nil {
			return err
		}
		second, err = tx.Deploy(alice, &recordingReceiver{})
		return err
	}))

	assert.Equal(t, crypto.CreateAddress(alice, 0), first)
	assert.Equal(t, crypto.CreateAddress(alice, 1), second)
}

func TestReceiverRunsInItsOwnFrame(t *testing.T) {
	c := newTestChain(t)
	fund(t, c, alice, 50)

	recv := &recordingReceiver{}
	var addr common.Address
	require.NoError(t, c.Execute(alice, func(tx *Tx) error {
		var err error
		addr, err = tx.Deploy(alice, recv)
		return err
	}))

	require.NoError(t, c.Execute(alice, func(tx *Tx) error {
		return tx.Transfer(alice, addr, big.NewInt(5))
	}))
	// 发送方只作为参数出现，接收合约在 Receive 内对外调用时的身份是它自己
	assert.Equal(t, addr, recv.seenCaller)
	assert.Equal(t, alice, recv.seenFrom)
	assert.Equal(t, alice, recv.seenOrigin)
	assert.Equal(t, int64(5), balance(t, c, addr))
}

func TestReceiverErrorRevertsTransfer(t *testing.T) {
	c := newTestChain(t)
	fund(t, c, alice, 50)

	boom := errors.New("rejected")
	recv := &recordingReceiver{fail: boom}
	var addr common.Address
	require.NoError(t, c.Execute(alice, func(tx *Tx) error {
		var err error
		addr, err = tx.Deploy(alice, recv)
		return err
	}))

	// 外层吞掉错误：交易本身成功，但转账帧已回滚
	require.NoError(t, c.Execute(alice, func(tx *Tx) error {
		err := tx.Transfer(alice, addr, big.NewInt(5))
		assert.ErrorIs(t, err, boom)
		return nil
	}))
	assert.Equal(t, int64(50), balance(t, c, alice))
	assert.Equal(t, int64(0), balance(t, c, addr))
}

func TestContractWithoutReceiverRejectsValue(t *testing.T) {
	c := newTestChain(t)
	fund(t, c, alice, 50)

	var addr common.Address
	require.NoError(t, c.Execute(alice, func(tx *Tx) error {
		var err error
		addr, err = tx.Deploy(alice, struct{}{})
		return err
	}))

	err := c.Execute(alice, func(tx *Tx) error {
		return tx.Transfer(alice, addr, big.NewInt(1))
	})
	assert.ErrorIs(t, err, ErrNoReceiver)
}

func TestRevertedDeployIsNotRegistered(t *testing.T) {
	c := newTestChain(t)
	boom := errors.New("abort")

	var addr common.Address
	err := c.Execute(alice, func(tx *Tx) error {
		var err error
		addr, err = tx.Deploy(alice, &recordingReceiver{})
		if err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.contractAt(addr)
	assert.False(t, ok)
	assert.ErrorIs(t, c.Attach(addr, &recordingReceiver{}), ErrUnknownContract)
}

func TestCallFramesTrackCaller(t *testing.T) {
	c := newTestChain(t)

	require.NoError(t, c.View(func(tx *Tx) error {
		assert.Equal(t, common.Address{}, tx.Caller())
		return tx.Call(alice, func() error {
			assert.Equal(t, alice, tx.Caller())
			return tx.Call(bob, func() error {
				assert.Equal(t, bob, tx.Caller())
				assert.Equal(t, 2, tx.Depth())
				return nil
			})
		})
	}))
}

func TestViewDoesNotCommit(t *testing.T) {
	c := newTestChain(t)

	require.NoError(t, c.View(func(tx *Tx) error {
		return tx.Mint(alice, big.NewInt(7))
	}))
	assert.Equal(t, int64(0), balance(t, c, alice))
}

func TestReadAddress(t *testing.T) {
	c := newTestChain(t)

	require.NoError(t, c.Execute(alice, func(tx *Tx) error {
		tx.Set("v1_test_addr", bob.Bytes())
		tx.Set("v1_test_bad", []byte{1, 2})
		return nil
	}))

	require.NoError(t, c.View(func(tx *Tx) error {
		got, ok, err := ReadAddress(tx, "v1_test_addr")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, bob, got)

		_, ok, err = ReadAddress(tx, "v1_test_missing")
		require.NoError(t, err)
		assert.False(t, ok)

		_, _, err = ReadAddress(tx, "v1_test_bad")
		assert.Error(t, err)
		return nil
	}))
}
