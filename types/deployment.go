package types

import "github.com/ethereum/go-ethereum/common"

// DeploymentNetwork 部署所在网络
type DeploymentNetwork struct {
	Name      string `json:"name"`
	NetworkID uint64 `json:"networkId"`
}

// Deployment 部署记录，写入 deployment.json 供外部展示层读取
type Deployment struct {
	Network              DeploymentNetwork `json:"network"`
	Deployer             common.Address    `json:"deployer"`
	Signer               common.Address    `json:"signer"`
	AuthorizationManager common.Address    `json:"authorizationManager"`
	SecureVault          common.Address    `json:"secureVault"`
}
