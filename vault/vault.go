// vault/vault.go
// SecureVault：托管存入的原生币，每一笔提现都先交给授权管理器裁决

package vault

import (
	"authvault/authz"
	"authvault/chain"
	"authvault/keys"
	"authvault/logs"
	"authvault/types"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Verifier 授权裁决方（authz.Manager 实现）
type Verifier interface {
	Address() common.Address
	VerifyAndConsume(tx *chain.Tx, auth *types.Authorization, sig []byte, networkID *big.Int) (common.Hash, error)
}

// SecureVault 资金托管合约
// 记账只在本合约内修改；提现全程持有重入保护
type SecureVault struct {
	address  common.Address
	verifier Verifier
	guard    reentrancyGuard
}

// Deploy 部署 vault 并固定其授权管理器
func Deploy(tx *chain.Tx, deployer common.Address, verifier Verifier) (*SecureVault, error) {
	if verifier == nil || verifier.Address() == (common.Address{}) {
		return nil, fmt.Errorf("%w: verifier", authz.ErrInvalidAddress)
	}

	v := &SecureVault{verifier: verifier}
	addr, err := tx.Deploy(deployer, v)
	if err != nil {
		return nil, err
	}
	v.address = addr
	tx.Set(keys.KeyVaultVerifier(addr), verifier.Address().Bytes())

	logs.Debug("[vault] deployed at %s verifier=%s", addr.Hex(), verifier.Address().Hex())
	return v, nil
}

// Attach 重新挂载已部署的 vault，verifier 必须与部署时记录的一致
func Attach(c *chain.Chain, addr common.Address, verifier Verifier) (*SecureVault, error) {
	v := &SecureVault{address: addr, verifier: verifier}

	var recorded common.Address
	err := c.View(func(tx *chain.Tx) error {
		var (
			ok  bool
			err error
		)
		recorded, ok, err = chain.ReadAddress(tx, keys.KeyVaultVerifier(addr))
		if err == nil && !ok {
			err = fmt.Errorf("%w: %s", chain.ErrUnknownContract, addr.Hex())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if verifier == nil || recorded != verifier.Address() {
		return nil, fmt.Errorf("%w: recorded %s", ErrVerifierMismatch, recorded.Hex())
	}
	if err := c.Attach(addr, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Address vault 地址
func (v *SecureVault) Address() common.Address { return v.address }

// Verifier 授权管理器地址
func (v *SecureVault) Verifier() common.Address { return v.verifier.Address() }

// Receive 接收入账转账并计入 totalDeposited；金额为 0 的转账不改变任何状态
func (v *SecureVault) Receive(tx *chain.Tx, from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidDeposit
	}
	if amount.Sign() == 0 {
		return nil
	}
	deposited, err := tx.GetBig(keys.KeyVaultTotalDeposited(v.address))
	if err != nil {
		return err
	}
	next, err := types.SafeAdd(deposited, amount)
	if err != nil {
		return err
	}
	tx.SetBig(keys.KeyVaultTotalDeposited(v.address), next)
	return nil
}

// Deposit 从 from 向 vault 转入 amount，amount 必须大于 0
func (v *SecureVault) Deposit(tx *chain.Tx, from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidDeposit
	}
	return tx.Transfer(from, v.address, amount)
}

// Withdraw 凭签名授权提现
// 顺序：vault 校验 -> 余额校验 -> 授权裁决（消费哈希）-> 记账 -> 转账交接
// 任一步失败，本次调用写入的全部状态回滚
func (v *SecureVault) Withdraw(tx *chain.Tx, auth *types.Authorization, sig []byte) (common.Hash, error) {
	if !v.guard.enter() {
		return common.Hash{}, ErrReentrantCall
	}
	defer v.guard.exit()

	// 交接期间接收方拿不到调用方持有的 big.Int
	auth = auth.Copy()

	var hash common.Hash
	err := tx.Call(v.address, func() error {
		if err := auth.Validate(); err != nil {
			return fmt.Errorf("%w: %v", authz.ErrInvalidAuthorization, err)
		}
		if auth.Vault != v.address {
			return authz.ErrInvalidVault
		}

		st, err := v.State(tx)
		if err != nil {
			return err
		}
		if auth.Amount.Cmp(st.CurrentBalance) > 0 {
			return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientVaultFunds, auth.Amount, st.CurrentBalance)
		}

		hash, err = v.verifier.VerifyAndConsume(tx, auth, sig, tx.NetworkID())
		if err != nil {
			return err
		}

		withdrawn, err := types.SafeAdd(st.TotalWithdrawn, auth.Amount)
		if err != nil {
			return err
		}
		tx.SetBig(keys.KeyVaultTotalWithdrawn(v.address), withdrawn)

		return tx.Transfer(v.address, auth.Recipient, auth.Amount)
	})
	if err != nil {
		return common.Hash{}, err
	}
	logs.Debug("[vault] withdraw %s wei to %s hash=%s origin=%s",
		auth.Amount, auth.Recipient.Hex(), hash.Hex(), tx.Origin().Hex())
	return hash, nil
}

// Locked 提现是否正在进行
func (v *SecureVault) Locked() bool { return v.guard.held() }

// TotalDeposited 累计存入
func (v *SecureVault) TotalDeposited(r chain.Reader) (*big.Int, error) {
	return chain.ReadBig(r, keys.KeyVaultTotalDeposited(v.address))
}

// TotalWithdrawn 累计提取
func (v *SecureVault) TotalWithdrawn(r chain.Reader) (*big.Int, error) {
	return chain.ReadBig(r, keys.KeyVaultTotalWithdrawn(v.address))
}

// CurrentBalance 当前余额 = 累计存入 - 累计提取
func (v *SecureVault) CurrentBalance(r chain.Reader) (*big.Int, error) {
	st, err := v.State(r)
	if err != nil {
		return nil, err
	}
	return st.CurrentBalance, nil
}

// State 记账视图
func (v *SecureVault) State(r chain.Reader) (types.VaultState, error) {
	deposited, err := v.TotalDeposited(r)
	if err != nil {
		return types.VaultState{}, err
	}
	withdrawn, err := v.TotalWithdrawn(r)
	if err != nil {
		return types.VaultState{}, err
	}
	current, err := types.SafeSub(deposited, withdrawn)
	if err != nil {
		return types.VaultState{}, fmt.Errorf("vault %s accounting corrupt: %w", v.address.Hex(), err)
	}
	return types.VaultState{
		TotalDeposited: deposited,
		TotalWithdrawn: withdrawn,
		CurrentBalance: current,
	}, nil
}

// CheckInvariant 校验记账余额与实际托管的原生币一致
func (v *SecureVault) CheckInvariant(tx *chain.Tx) error {
	st, err := v.State(tx)
	if err != nil {
		return err
	}
	custody, err := tx.BalanceOf(v.address)
	if err != nil {
		return err
	}
	if custody.Cmp(st.CurrentBalance) != 0 {
		return fmt.Errorf("vault %s holds %s but accounts for %s", v.address.Hex(), custody, st.CurrentBalance)
	}
	return nil
}
