package vault

import (
	"authvault/authz"
	"authvault/chain"
	"authvault/types"
	"errors"
)

var (
	// ErrInsufficientVaultFunds 提现金额超过当前余额
	ErrInsufficientVaultFunds = errors.New("insufficient vault funds")
	// ErrReentrantCall 提现进行中再次进入提现路径
	ErrReentrantCall = errors.New("reentrant call")
	// ErrInvalidDeposit 主动存入的金额为 0 或为负
	ErrInvalidDeposit = errors.New("deposit amount must be positive")
	// ErrVerifierMismatch 挂载时的授权管理器与部署记录不一致
	ErrVerifierMismatch = errors.New("verifier does not match deployed vault")
)

// ErrorKind 失败类别，展示层按类别给出提示
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindAuthorization
	KindFunds
	KindConcurrency
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthorization:
		return "authorization"
	case KindFunds:
		return "funds"
	case KindConcurrency:
		return "concurrency"
	default:
		return "unknown"
	}
}

var kindTable = []struct {
	kind ErrorKind
	errs []error
}{
	{KindConfiguration, []error{
		authz.ErrAlreadyBound, authz.ErrInvalidAddress, authz.ErrNotDeployer,
		authz.ErrVaultNotBound, ErrVerifierMismatch,
	}},
	{KindAuthorization, []error{
		authz.ErrInvalidSignature, authz.ErrInvalidVault, authz.ErrChainIDMismatch,
		authz.ErrAlreadyConsumed, authz.ErrUnauthorizedCaller, authz.ErrInvalidAuthorization,
		types.ErrNilAuthorization,
	}},
	{KindFunds, []error{
		ErrInsufficientVaultFunds, ErrInvalidDeposit,
		chain.ErrInsufficientBalance, chain.ErrInvalidAmount,
	}},
	{KindConcurrency, []error{ErrReentrantCall}},
}

// Classify 把任意错误归入失败类别
// 重入错误优先：外层交易因内层重入失败而回滚时，根因是并发类
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for i := len(kindTable) - 1; i >= 0; i-- {
		for _, target := range kindTable[i].errs {
			if errors.Is(err, target) {
				return kindTable[i].kind
			}
		}
	}
	return KindUnknown
}
