package handlers

import (
	"authvault/types"
	"fmt"
	"math/big"
)

// AuthorizationRequest 授权的 JSON 形式，整数字段使用十进制或 0x 十六进制字符串
type AuthorizationRequest struct {
	Vault     string `json:"vault"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Nonce     string `json:"nonce"`
	NetworkID string `json:"networkId"`
}

// WithdrawRequest 提现请求
type WithdrawRequest struct {
	Authorization AuthorizationRequest `json:"authorization"`
	Signature     string               `json:"signature"`
}

// DepositRequest devnet 存款请求，amount 为以 ether 计的十进制数
type DepositRequest struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

// Amount 金额的两种表示
type Amount struct {
	Wei   string `json:"wei"`
	Ether string `json:"ether"`
}

func newAmount(v *big.Int) Amount {
	return Amount{Wei: v.String(), Ether: types.FormatUnits(v)}
}

// VaultStatsResponse vault 记账视图
type VaultStatsResponse struct {
	Vault          string `json:"vault"`
	Verifier       string `json:"verifier"`
	TotalDeposited Amount `json:"totalDeposited"`
	TotalWithdrawn Amount `json:"totalWithdrawn"`
	CurrentBalance Amount `json:"currentBalance"`
	Custodied      Amount `json:"custodied"`
	InvariantOK    bool   `json:"invariantOk"`
}

// AuthzConfigResponse 授权管理器配置
type AuthzConfigResponse struct {
	Manager     string `json:"manager"`
	Signer      string `json:"signer"`
	BoundVault  string `json:"boundVault,omitempty"`
	Status      string `json:"status"`
	NetworkName string `json:"networkName"`
	NetworkID   string `json:"networkId"`
}

// ConsumedResponse 授权哈希消费状态
type ConsumedResponse struct {
	Hash     string `json:"hash"`
	Consumed bool   `json:"consumed"`
}

// HashResponse 规范哈希与签名摘要
type HashResponse struct {
	Hash          string `json:"hash"`
	SigningDigest string `json:"signingDigest"`
	Encoded       string `json:"encoded"`
}

// WithdrawResponse 提现成功
type WithdrawResponse struct {
	Hash      string `json:"hash"`
	Recipient string `json:"recipient"`
	Amount    Amount `json:"amount"`
}

// DepositResponse 存款成功
type DepositResponse struct {
	From           string `json:"from"`
	Amount         Amount `json:"amount"`
	TotalDeposited Amount `json:"totalDeposited"`
}

// toAuthorization 解析请求中的授权字段
func (r AuthorizationRequest) toAuthorization() (*types.Authorization, error) {
	vaultAddr, err := types.ParseAddress(r.Vault)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	recipient, err := types.ParseAddress(r.Recipient)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	amount, err := types.ParseUint256(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	nonce, err := types.ParseUint256(r.Nonce)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	networkID, err := types.ParseUint256(r.NetworkID)
	if err != nil {
		return nil, fmt.Errorf("networkId: %w", err)
	}
	return &types.Authorization{
		Vault:     vaultAddr,
		Recipient: recipient,
		Amount:    amount,
		Nonce:     nonce,
		NetworkID: networkID,
	}, nil
}
