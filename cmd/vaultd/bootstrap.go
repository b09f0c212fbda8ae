package main

import (
	"authvault/chain"
	"authvault/config"
	"authvault/db"
	"authvault/logs"
	"authvault/signer"
	"authvault/types"
	"authvault/vault"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
)

// node 一个运行中的 vault 实例
type node struct {
	cfg      *config.Config
	store    *db.Manager
	chain    *chain.Chain
	system   *vault.System
	deployer *signer.Signer
	record   types.Deployment
}

// bootstrap 打开数据库；有可用部署记录时挂载，否则部署一套新的系统并写出部署记录
func bootstrap(cfg *config.Config) (*node, error) {
	store, err := db.NewManager(cfg.Database)
	if err != nil {
		return nil, err
	}
	if store.InMemory() {
		logs.Warn("[vaultd] database is in-memory, vault state will not survive a restart")
	}
	n := &node{cfg: cfg, store: store, chain: chain.New(cfg.Network, store)}

	if err := n.loadDeployer(); err != nil {
		_ = store.Close()
		return nil, err
	}

	record, err := readDeployment(cfg.Vault.DeploymentFile)
	switch {
	case err == nil:
		sys, aerr := vault.AttachSystem(n.chain, record)
		if aerr == nil {
			n.system, n.record = sys, record
			logs.Info("[vaultd] attached vault %s manager %s", record.SecureVault.Hex(), record.AuthorizationManager.Hex())
			return n, nil
		}
		if !errors.Is(aerr, chain.ErrUnknownContract) {
			_ = store.Close()
			return nil, fmt.Errorf("attach deployment %s: %w", cfg.Vault.DeploymentFile, aerr)
		}
		logs.Warn("[vaultd] deployment %s not present in state, redeploying", cfg.Vault.DeploymentFile)
	case errors.Is(err, os.ErrNotExist):
	default:
		_ = store.Close()
		return nil, err
	}

	if err := n.deploy(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return n, nil
}

func (n *node) loadDeployer() error {
	var err error
	if n.cfg.Vault.DeployerKey != "" {
		n.deployer, err = signer.New(n.cfg.Vault.DeployerKey)
	} else {
		n.deployer, err = signer.Generate()
		if err == nil {
			logs.Warn("[vaultd] VAULT_DEPLOYER_KEY not set, using ephemeral deployer %s", n.deployer.Address().Hex())
		}
	}
	if err != nil {
		return fmt.Errorf("deployer key: %w", err)
	}
	return nil
}

// signerAddress 未配置 AUTH_SIGNER 时签名者默认为部署者
func (n *node) signerAddress() (common.Address, error) {
	if n.cfg.Vault.Signer == "" {
		return n.deployer.Address(), nil
	}
	return types.ParseAddress(n.cfg.Vault.Signer)
}

func (n *node) deploy() error {
	signerAddr, err := n.signerAddress()
	if err != nil {
		return fmt.Errorf("AUTH_SIGNER: %w", err)
	}
	genesis, err := types.ParseUnits(n.cfg.Vault.GenesisBalance)
	if err != nil {
		return fmt.Errorf("genesis balance: %w", err)
	}

	deployer := n.deployer.Address()
	logs.Info("[vaultd] deploying with account %s on %s (%s)", deployer.Hex(), n.chain.Name(), n.chain.NetworkID())

	err = n.chain.Execute(deployer, func(tx *chain.Tx) error {
		if genesis.Sign() > 0 {
			if err := tx.Mint(deployer, genesis); err != nil {
				return err
			}
		}
		sys, err := vault.DeploySystem(tx, deployer, signerAddr)
		if err != nil {
			return err
		}
		n.system = sys
		return nil
	})
	if err != nil {
		return err
	}

	n.record, err = n.system.Deployment(n.chain, deployer)
	if err != nil {
		return err
	}
	if err := writeDeployment(n.cfg.Vault.DeploymentFile, n.record); err != nil {
		return err
	}

	logs.Info("[vaultd] AuthorizationManager deployed to %s", n.record.AuthorizationManager.Hex())
	logs.Info("[vaultd] SecureVault deployed to %s", n.record.SecureVault.Hex())
	logs.Info("[vaultd] signer %s, deployment written to %s", n.record.Signer.Hex(), n.cfg.Vault.DeploymentFile)
	return nil
}

func (n *node) close() error {
	return n.store.Close()
}

func readDeployment(path string) (types.Deployment, error) {
	var d types.Deployment
	data, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}

func writeDeployment(path string, d types.Deployment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
