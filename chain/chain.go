// chain/chain.go
// 进程内执行账本：原生币余额、合约注册、顶层交易串行执行与原子落库

package chain

import (
	"authvault/config"
	"authvault/db"
	"authvault/keys"
	"authvault/logs"
	"authvault/state"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance 转出账户余额不足
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount 转账金额为空或为负
	ErrInvalidAmount = errors.New("invalid transfer amount")
	// ErrNoReceiver 目标合约不接受原生币
	ErrNoReceiver = errors.New("recipient contract cannot receive value")
	// ErrZeroAddress 目标地址为零地址
	ErrZeroAddress = errors.New("zero address")
	// ErrUnknownContract Attach 的地址在状态里没有合约标记
	ErrUnknownContract = errors.New("no contract deployed at address")
)

// Receiver 能接收原生币的合约
// Receive 在转账的余额变更之后被调用，此时控制权交给接收方；返回错误会回滚整笔转账
type Receiver interface {
	Receive(tx *Tx, from common.Address, amount *big.Int) error
}

// Chain 执行网络
// 顶层交易一次只执行一个（mu），每笔交易在独立的 StateView 上运行，成功后一次性提交
type Chain struct {
	mu        sync.Mutex
	name      string
	networkID *big.Int
	store     *db.Manager

	regMu     sync.RWMutex
	contracts map[common.Address]any
}

// New 创建执行网络
func New(cfg config.NetworkConfig, store *db.Manager) *Chain {
	return &Chain{
		name:      cfg.Name,
		networkID: new(big.Int).SetUint64(cfg.ID),
		store:     store,
		contracts: make(map[common.Address]any),
	}
}

// Name 网络名称
func (c *Chain) Name() string { return c.name }

// NetworkID 返回网络标识副本
func (c *Chain) NetworkID() *big.Int { return new(big.Int).Set(c.networkID) }

// Execute 以 origin 身份执行一笔顶层交易
// fn 返回错误时整笔交易的写入全部丢弃；成功时写集原子提交到 db
func (c *Chain) Execute(origin common.Address, fn func(tx *Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := c.newTx(origin)
	if err := tx.Call(origin, func() error { return fn(tx) }); err != nil {
		return err
	}

	diff := tx.sv.Diff()
	if err := c.store.Commit(diff); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}

	// 只登记确实落库的合约（部署所在的调用帧可能已被回滚）
	c.regMu.Lock()
	for addr, contract := range tx.deployed {
		if _, ok, err := tx.sv.Get(keys.KeyContract(addr)); err == nil && ok {
			c.contracts[addr] = contract
		}
	}
	c.regMu.Unlock()

	logs.Trace("[chain] committed tx origin=%s writes=%d", origin.Hex(), len(diff))
	return nil
}

// View 只读执行：fn 里的任何写入都不会提交
func (c *Chain) View(fn func(tx *Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return fn(c.newTx(common.Address{}))
}

// Attach 把已部署合约的运行时实例重新挂到地址上（进程重启后使用）
func (c *Chain) Attach(addr common.Address, contract any) error {
	val, err := c.store.Get(keys.KeyContract(addr))
	if err != nil {
		return err
	}
	if val == nil {
		return fmt.Errorf("%w: %s", ErrUnknownContract, addr.Hex())
	}

	c.regMu.Lock()
	c.contracts[addr] = contract
	c.regMu.Unlock()
	return nil
}

// BalanceOf 读取已提交状态中的余额
func (c *Chain) BalanceOf(addr common.Address) (*big.Int, error) {
	var bal *big.Int
	err := c.View(func(tx *Tx) error {
		var err error
		bal, err = tx.BalanceOf(addr)
		return err
	})
	return bal, err
}

func (c *Chain) newTx(origin common.Address) *Tx {
	return &Tx{
		chain:    c,
		sv:       state.NewStateView(c.store.Get),
		origin:   origin,
		deployed: make(map[common.Address]any),
	}
}

func (c *Chain) contractAt(addr common.Address) (any, bool) {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	contract, ok := c.contracts[addr]
	return contract, ok
}
