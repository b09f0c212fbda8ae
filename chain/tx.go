// chain/tx.go
// 交易上下文：调用帧（调用者栈 + 快照回滚）、转账、部署与状态读写

package chain

import (
	"authvault/keys"
	"authvault/state"
	"authvault/types"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Reader 只读状态访问
type Reader interface {
	Get(key string) ([]byte, bool, error)
}

// Tx 一笔顶层交易的执行上下文，只在 Chain.Execute / Chain.View 的回调内有效
type Tx struct {
	chain    *Chain
	sv       state.StateView
	origin   common.Address
	callers  []common.Address
	deployed map[common.Address]any
}

// Origin 发起整笔交易的外部账户
func (tx *Tx) Origin() common.Address { return tx.origin }

// Caller 当前调用帧的直接调用者
func (tx *Tx) Caller() common.Address {
	if len(tx.callers) == 0 {
		return tx.origin
	}
	return tx.callers[len(tx.callers)-1]
}

// Depth 当前调用深度
func (tx *Tx) Depth() int { return len(tx.callers) }

// NetworkID 当前执行网络标识
func (tx *Tx) NetworkID() *big.Int { return tx.chain.NetworkID() }

// Call 以 caller 身份进入一个新的调用帧
// fn 返回错误时，帧内的所有状态写入被回滚，错误原样返回
func (tx *Tx) Call(caller common.Address, fn func() error) error {
	snap := tx.sv.Snapshot()
	tx.callers = append(tx.callers, caller)
	err := fn()
	tx.callers = tx.callers[:len(tx.callers)-1]

	if err != nil {
		if rerr := tx.sv.Revert(snap); rerr != nil {
			return fmt.Errorf("%w (revert failed: %v)", err, rerr)
		}
		return err
	}
	return nil
}

// Get 读取状态
func (tx *Tx) Get(key string) ([]byte, bool, error) { return tx.sv.Get(key) }

// Set 写入状态
func (tx *Tx) Set(key string, val []byte) { tx.sv.Set(key, val) }

// GetBig 读取 big.Int，不存在时为 0
func (tx *Tx) GetBig(key string) (*big.Int, error) { return ReadBig(tx, key) }

// SetBig 写入 big.Int（大端字节）
func (tx *Tx) SetBig(key string, v *big.Int) { tx.sv.Set(key, v.Bytes()) }

// BalanceOf 读取账户余额
func (tx *Tx) BalanceOf(addr common.Address) (*big.Int, error) {
	return ReadBig(tx, keys.KeyBalance(addr))
}

// Transfer 从 from 向 to 转移原生币
// 余额先变更；若 to 是可接收合约，随后在以 to 为身份的新帧中调用其 Receive（from 作为参数传入），
// 这是控制权交给外部的唯一时刻；合约在 Receive 内发起的调用，其 Caller 是合约自己，而不是 from
func (tx *Tx) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}

	return tx.Call(from, func() error {
		if err := tx.move(from, to, amount); err != nil {
			return err
		}
		contract, ok := tx.contractAt(to)
		if !ok {
			return nil
		}
		r, ok := contract.(Receiver)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoReceiver, to.Hex())
		}
		return tx.Call(to, func() error {
			return r.Receive(tx, from, amount)
		})
	})
}

// Mint 凭空增加余额（devnet 创世分配）
func (tx *Tx) Mint(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	bal, err := tx.BalanceOf(to)
	if err != nil {
		return err
	}
	next, err := types.SafeAdd(bal, amount)
	if err != nil {
		return err
	}
	tx.SetBig(keys.KeyBalance(to), next)
	return nil
}

// Deploy 以 deployer 身份部署合约，地址按 CREATE 规则由 (deployer, nonce) 推导
func (tx *Tx) Deploy(deployer common.Address, contract any) (common.Address, error) {
	nonce, err := tx.nonce(deployer)
	if err != nil {
		return common.Address{}, err
	}
	addr := crypto.CreateAddress(deployer, nonce)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce+1)
	tx.sv.Set(keys.KeyAccountNonce(deployer), buf[:])
	tx.sv.Set(keys.KeyContract(addr), []byte{1})
	tx.deployed[addr] = contract
	return addr, nil
}

func (tx *Tx) nonce(addr common.Address) (uint64, error) {
	val, ok, err := tx.sv.Get(keys.KeyAccountNonce(addr))
	if err != nil || !ok {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt nonce for %s", addr.Hex())
	}
	return binary.BigEndian.Uint64(val), nil
}

func (tx *Tx) move(from, to common.Address, amount *big.Int) error {
	fromBal, err := tx.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBal, amount)
	}
	nextFrom, err := types.SafeSub(fromBal, amount)
	if err != nil {
		return err
	}
	tx.SetBig(keys.KeyBalance(from), nextFrom)

	toBal, err := tx.BalanceOf(to)
	if err != nil {
		return err
	}
	nextTo, err := types.SafeAdd(toBal, amount)
	if err != nil {
		return err
	}
	tx.SetBig(keys.KeyBalance(to), nextTo)
	return nil
}

func (tx *Tx) contractAt(addr common.Address) (any, bool) {
	if contract, ok := tx.deployed[addr]; ok {
		if _, live, err := tx.sv.Get(keys.KeyContract(addr)); err == nil && live {
			return contract, true
		}
	}
	return tx.chain.contractAt(addr)
}

// ReadBig 从 Reader 读取 big.Int，不存在时为 0
func ReadBig(r Reader, key string) (*big.Int, error) {
	val, ok, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(val), nil
}

// ReadAddress 从 Reader 读取地址；不存在时 ok=false
func ReadAddress(r Reader, key string) (addr common.Address, ok bool, err error) {
	val, ok, err := r.Get(key)
	if err != nil || !ok {
		return common.Address{}, false, err
	}
	if len(val) != common.AddressLength {
		return common.Address{}, false, fmt.Errorf("corrupt address at %s", key)
	}
	return common.BytesToAddress(val), true, nil
}
