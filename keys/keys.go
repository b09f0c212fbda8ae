// keys/keys.go
// 统一的 Key 定义包，供 chain / authz / vault 与 DB 模块共同使用
package keys

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ===================== 版本控制 =====================
// 设置全局 Key 版本前缀（例如 "v1" → 产出 "v1_<key>"）。
const KeyVersion = "v1"

// withVer 把版本号拼到最前面（保持下划线风格：v1_<...>）
func withVer(s string) string {
	if KeyVersion == "" {
		return s
	}
	return KeyVersion + "_" + s
}

// addr 地址统一使用小写十六进制，避免校验和大小写导致同一账户出现两个 key
func addr(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// ===================== 账户相关 =====================

// KeyBalance 原生币余额
// 例：v1_balance_<address>
func KeyBalance(a common.Address) string {
	return withVer("balance_" + addr(a))
}

// KeyAccountNonce 账户部署计数（用于推导合约地址）
// 例：v1_nonce_<address>
func KeyAccountNonce(a common.Address) string {
	return withVer("nonce_" + addr(a))
}

// KeyContract 合约标记
// 例：v1_contract_<address>
func KeyContract(a common.Address) string {
	return withVer("contract_" + addr(a))
}

// ===================== 授权管理 =====================

// KeyAuthzSigner 指定签名者（构造时写入，之后只读）
// 例：v1_authz_<manager>_signer
func KeyAuthzSigner(manager common.Address) string {
	return withVer("authz_" + addr(manager) + "_signer")
}

// KeyAuthzDeployer 部署者（唯一允许绑定 vault 的身份）
// 例：v1_authz_<manager>_deployer
func KeyAuthzDeployer(manager common.Address) string {
	return withVer("authz_" + addr(manager) + "_deployer")
}

// KeyAuthzVault 绑定的 vault（只允许写一次）
// 例：v1_authz_<manager>_vault
func KeyAuthzVault(manager common.Address) string {
	return withVer("authz_" + addr(manager) + "_vault")
}

// KeyAuthzConsumed 已消费的授权哈希
// 例：v1_authz_<manager>_consumed_<hash>
func KeyAuthzConsumed(manager common.Address, hash common.Hash) string {
	return PrefixAuthzConsumed(manager) + hash.Hex()
}

// PrefixAuthzConsumed 已消费集合的扫描前缀
func PrefixAuthzConsumed(manager common.Address) string {
	return withVer("authz_" + addr(manager) + "_consumed_")
}

// ===================== Vault =====================

// KeyVaultVerifier vault 依赖的授权管理器地址
// 例：v1_vault_<vault>_verifier
func KeyVaultVerifier(vault common.Address) string {
	return withVer("vault_" + addr(vault) + "_verifier")
}

// KeyVaultTotalDeposited 累计存入
// 例：v1_vault_<vault>_total_deposited
func KeyVaultTotalDeposited(vault common.Address) string {
	return withVer("vault_" + addr(vault) + "_total_deposited")
}

// KeyVaultTotalWithdrawn 累计提取
// 例：v1_vault_<vault>_total_withdrawn
func KeyVaultTotalWithdrawn(vault common.Address) string {
	return withVer("vault_" + addr(vault) + "_total_withdrawn")
}
