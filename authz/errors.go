package authz

import "errors"

// 配置类错误：部署/绑定阶段出现即终止
var (
	// ErrAlreadyBound 已绑定过 vault
	ErrAlreadyBound = errors.New("authorization manager already bound to a vault")
	// ErrInvalidAddress 零地址
	ErrInvalidAddress = errors.New("invalid address")
	// ErrNotDeployer 绑定调用者不是部署者
	ErrNotDeployer = errors.New("caller is not the deploying authority")
	// ErrVaultNotBound 尚未绑定 vault，拒绝任何授权消费
	ErrVaultNotBound = errors.New("authorization manager has no bound vault")
)

// 授权类错误：相同输入重试永远不会成功
var (
	// ErrInvalidSignature 签名无法恢复或恢复出的地址不是指定签名者
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidVault 授权中的 vault 与绑定的 vault 不一致
	ErrInvalidVault = errors.New("invalid vault")
	// ErrChainIDMismatch 授权中的网络标识与执行网络不一致
	ErrChainIDMismatch = errors.New("chain id mismatch")
	// ErrAlreadyConsumed 授权哈希已被消费
	ErrAlreadyConsumed = errors.New("authorization already consumed")
	// ErrUnauthorizedCaller 调用者不是绑定的 vault
	ErrUnauthorizedCaller = errors.New("caller is not the bound vault")
	// ErrInvalidAuthorization 授权字段缺失或超出 uint256 范围，无法规范编码
	ErrInvalidAuthorization = errors.New("malformed authorization")
)
