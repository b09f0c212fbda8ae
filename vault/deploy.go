// vault/deploy.go
// 一次性部署与重启挂载：授权管理器 -> vault -> 绑定

package vault

import (
	"authvault/authz"
	"authvault/chain"
	"authvault/types"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// System 一组互相绑定的授权管理器与 vault
type System struct {
	Manager *authz.Manager
	Vault   *SecureVault
}

// DeploySystem 以 deployer 身份部署管理器（固定 signer）和 vault，并把管理器绑定到该 vault
// 必须在 Chain.Execute 内调用，任一步失败整笔交易回滚
func DeploySystem(tx *chain.Tx, deployer, signer common.Address) (*System, error) {
	sys := &System{}
	err := tx.Call(deployer, func() error {
		mgr, err := authz.Deploy(tx, deployer, signer)
		if err != nil {
			return fmt.Errorf("deploy authorization manager: %w", err)
		}
		v, err := Deploy(tx, deployer, mgr)
		if err != nil {
			return fmt.Errorf("deploy vault: %w", err)
		}
		if err := mgr.BindVault(tx, v.Address()); err != nil {
			return fmt.Errorf("bind vault: %w", err)
		}
		sys.Manager, sys.Vault = mgr, v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sys, nil
}

// AttachSystem 按部署记录重新挂载，并确认两者仍互相绑定
func AttachSystem(c *chain.Chain, d types.Deployment) (*System, error) {
	if d.Network.NetworkID != c.NetworkID().Uint64() {
		return nil, fmt.Errorf("%w: deployment on network %d, chain is %s",
			authz.ErrChainIDMismatch, d.Network.NetworkID, c.NetworkID())
	}

	mgr, err := authz.Attach(c, d.AuthorizationManager)
	if err != nil {
		return nil, fmt.Errorf("attach authorization manager: %w", err)
	}
	v, err := Attach(c, d.SecureVault, mgr)
	if err != nil {
		return nil, fmt.Errorf("attach vault: %w", err)
	}

	err = c.View(func(tx *chain.Tx) error {
		bound, ok, err := mgr.BoundVault(tx)
		if err != nil {
			return err
		}
		if !ok || bound != v.Address() {
			return fmt.Errorf("%w: manager %s is not bound to %s", authz.ErrVaultNotBound, mgr.Address().Hex(), v.Address().Hex())
		}
		signer, err := mgr.Signer(tx)
		if err != nil {
			return err
		}
		if d.Signer != (common.Address{}) && signer != d.Signer {
			return fmt.Errorf("deployment signer %s differs from on-chain signer %s", d.Signer.Hex(), signer.Hex())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &System{Manager: mgr, Vault: v}, nil
}

// Deployment 生成部署记录
func (s *System) Deployment(c *chain.Chain, deployer common.Address) (types.Deployment, error) {
	var signer common.Address
	err := c.View(func(tx *chain.Tx) error {
		var err error
		signer, err = s.Manager.Signer(tx)
		return err
	})
	if err != nil {
		return types.Deployment{}, err
	}
	return types.Deployment{
		Network: types.DeploymentNetwork{
			Name:      c.Name(),
			NetworkID: c.NetworkID().Uint64(),
		},
		Deployer:             deployer,
		Signer:               signer,
		AuthorizationManager: s.Manager.Address(),
		SecureVault:          s.Vault.Address(),
	}, nil
}
