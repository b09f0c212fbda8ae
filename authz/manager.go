// authz/manager.go
// AuthorizationManager：唯一判断一次提现是否被正确授权且未被使用过的组件

package authz

import (
	"authvault/chain"
	"authvault/keys"
	"authvault/logs"
	"authvault/types"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Status 管理器生命周期
type Status int

const (
	// StatusUnconfigured 未部署（状态中没有签名者）
	StatusUnconfigured Status = iota
	// StatusConfigured 已配置签名者，尚未绑定 vault
	StatusConfigured
	// StatusBound 已绑定 vault，终态
	StatusBound
)

func (s Status) String() string {
	switch s {
	case StatusConfigured:
		return "configured"
	case StatusBound:
		return "bound"
	default:
		return "unconfigured"
	}
}

// Scanner 前缀扫描（db.Manager 实现）
type Scanner interface {
	Scan(prefix string) (map[string][]byte, error)
}

// Manager 授权管理器
// 签名者在部署时写入且此后只读；vault 绑定只能写一次；已消费集合只增不减
type Manager struct {
	address common.Address
}

// Deploy 以 deployer 身份部署管理器并固定签名者
func Deploy(tx *chain.Tx, deployer, signer common.Address) (*Manager, error) {
	if signer == (common.Address{}) {
		return nil, fmt.Errorf("%w: signer", ErrInvalidAddress)
	}

	m := &Manager{}
	addr, err := tx.Deploy(deployer, m)
	if err != nil {
		return nil, err
	}
	m.address = addr
	tx.Set(keys.KeyAuthzSigner(addr), signer.Bytes())
	tx.Set(keys.KeyAuthzDeployer(addr), deployer.Bytes())

	logs.Debug("[authz] manager deployed at %s signer=%s", addr.Hex(), signer.Hex())
	return m, nil
}

// Attach 重新挂载已部署的管理器
func Attach(c *chain.Chain, addr common.Address) (*Manager, error) {
	m := &Manager{address: addr}
	if err := c.Attach(addr, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Address 管理器地址
func (m *Manager) Address() common.Address { return m.address }

// Signer 指定签名者
func (m *Manager) Signer(r chain.Reader) (common.Address, error) {
	signer, ok, err := chain.ReadAddress(r, keys.KeyAuthzSigner(m.address))
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("manager %s is not configured", m.address.Hex())
	}
	return signer, nil
}

// Deployer 部署者
func (m *Manager) Deployer(r chain.Reader) (common.Address, error) {
	deployer, _, err := chain.ReadAddress(r, keys.KeyAuthzDeployer(m.address))
	return deployer, err
}

// BoundVault 绑定的 vault；未绑定时 ok=false
func (m *Manager) BoundVault(r chain.Reader) (common.Address, bool, error) {
	return chain.ReadAddress(r, keys.KeyAuthzVault(m.address))
}

// Status 当前生命周期状态
func (m *Manager) Status(r chain.Reader) (Status, error) {
	if _, ok, err := chain.ReadAddress(r, keys.KeyAuthzSigner(m.address)); err != nil || !ok {
		return StatusUnconfigured, err
	}
	_, bound, err := m.BoundVault(r)
	if err != nil {
		return StatusUnconfigured, err
	}
	if bound {
		return StatusBound, nil
	}
	return StatusConfigured, nil
}

// IsConsumed 授权哈希是否已被消费
func (m *Manager) IsConsumed(r chain.Reader, hash common.Hash) (bool, error) {
	_, ok, err := r.Get(keys.KeyAuthzConsumed(m.address, hash))
	return ok, err
}

// ListConsumed 列出已提交的全部已消费哈希（按字典序）
func (m *Manager) ListConsumed(s Scanner) ([]common.Hash, error) {
	prefix := keys.PrefixAuthzConsumed(m.address)
	kvs, err := s.Scan(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]common.Hash, 0, len(kvs))
	for k := range kvs {
		out = append(out, common.HexToHash(strings.TrimPrefix(k, prefix)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out, nil
}

// BindVault 绑定唯一服务的 vault，只有部署者可以调用且只能成功一次
func (m *Manager) BindVault(tx *chain.Tx, vault common.Address) error {
	deployer, err := m.Deployer(tx)
	if err != nil {
		return err
	}
	if tx.Caller() != deployer {
		return fmt.Errorf("%w: %s", ErrNotDeployer, tx.Caller().Hex())
	}
	if _, bound, err := m.BoundVault(tx); err != nil {
		return err
	} else if bound {
		return ErrAlreadyBound
	}
	if vault == (common.Address{}) {
		return fmt.Errorf("%w: vault", ErrInvalidAddress)
	}

	tx.Set(keys.KeyAuthzVault(m.address), vault.Bytes())
	logs.Debug("[authz] manager %s bound to vault %s", m.address.Hex(), vault.Hex())
	return nil
}

// VerifyAndConsume 校验授权并标记为已消费，只允许绑定的 vault 调用
// 任一检查失败都不写任何状态；成功时返回授权哈希
func (m *Manager) VerifyAndConsume(tx *chain.Tx, auth *types.Authorization, sig []byte, networkID *big.Int) (common.Hash, error) {
	vault, bound, err := m.BoundVault(tx)
	if err != nil {
		return common.Hash{}, err
	}
	if !bound {
		return common.Hash{}, ErrVaultNotBound
	}
	if tx.Caller() != vault {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrUnauthorizedCaller, tx.Caller().Hex())
	}

	// 1. 规范哈希
	hash, err := HashAuthorization(auth)
	if err != nil {
		return common.Hash{}, err
	}
	// 2. vault 绑定
	if auth.Vault != vault {
		return common.Hash{}, ErrInvalidVault
	}
	// 3. 网络绑定
	if networkID == nil || auth.NetworkID.Cmp(networkID) != 0 {
		return common.Hash{}, ErrChainIDMismatch
	}
	// 4. 一次性使用
	consumed, err := m.IsConsumed(tx, hash)
	if err != nil {
		return common.Hash{}, err
	}
	if consumed {
		return common.Hash{}, ErrAlreadyConsumed
	}
	// 5. 签名者身份
	signer, err := m.Signer(tx)
	if err != nil {
		return common.Hash{}, err
	}
	recovered, err := RecoverSigner(hash, sig)
	if err != nil {
		return common.Hash{}, err
	}
	if recovered != signer {
		return common.Hash{}, fmt.Errorf("%w: recovered %s", ErrInvalidSignature, recovered.Hex())
	}
	// 6. 记录消费
	tx.Set(keys.KeyAuthzConsumed(m.address, hash), []byte{1})
	return hash, nil
}
