// handlers/errors.go
// 核心错误到 HTTP 错误信封的映射；核心本身不记录日志，这里是唯一给出用户提示的地方

package handlers

import (
	"authvault/authz"
	"authvault/chain"
	"authvault/vault"
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// 稳定的错误文本码
const (
	TextInvalidSignature    = "INVALID_SIGNATURE"
	TextInvalidVault        = "INVALID_VAULT"
	TextChainIDMismatch     = "CHAIN_ID_MISMATCH"
	TextAlreadyConsumed     = "ALREADY_CONSUMED"
	TextUnauthorizedCaller  = "UNAUTHORIZED_CALLER"
	TextBadInput            = "BAD_INPUT"
	TextInsufficientFunds   = "INSUFFICIENT_VAULT_FUNDS"
	TextInsufficientBalance = "INSUFFICIENT_BALANCE"
	TextInvalidDeposit      = "INVALID_DEPOSIT"
	TextReentrantCall       = "REENTRANT_CALL"
	TextRecipientRejected   = "RECIPIENT_REJECTED"
	TextConfiguration       = "CONFIGURATION_ERROR"
	TextMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	TextDevDepositDisabled  = "DEV_DEPOSIT_DISABLED"
	TextInternal            = "INTERNAL_ERROR"
)

// errorEnvelope 响应体
type errorEnvelope struct {
	Error    string `json:"error"`
	TextCode string `json:"text_code"`
	Category string `json:"category"`
	Kind     string `json:"kind,omitempty"`
}

type mapping struct {
	target   error
	category goerrors.Category
	status   int
	text     string
	message  string
}

// 顺序即优先级
var mappings = []mapping{
	{vault.ErrReentrantCall, goerrors.CategoryConflict, http.StatusConflict, TextReentrantCall,
		"withdrawal rejected: nested call during fund transfer"},
	{authz.ErrInvalidAuthorization, goerrors.CategoryBadInput, http.StatusBadRequest, TextBadInput,
		"authorization is malformed"},
	{authz.ErrInvalidSignature, goerrors.CategoryAuth, http.StatusUnauthorized, TextInvalidSignature,
		"signature was not produced by the designated signer"},
	{authz.ErrInvalidVault, goerrors.CategoryAuthz, http.StatusForbidden, TextInvalidVault,
		"authorization targets a different vault"},
	{authz.ErrChainIDMismatch, goerrors.CategoryAuthz, http.StatusForbidden, TextChainIDMismatch,
		"authorization was issued for a different network"},
	{authz.ErrAlreadyConsumed, goerrors.CategoryConflict, http.StatusConflict, TextAlreadyConsumed,
		"authorization has already been used"},
	{authz.ErrUnauthorizedCaller, goerrors.CategoryAuthz, http.StatusForbidden, TextUnauthorizedCaller,
		"only the bound vault may consume authorizations"},
	{vault.ErrInsufficientVaultFunds, goerrors.CategoryOperation, http.StatusUnprocessableEntity, TextInsufficientFunds,
		"vault balance is too low for this withdrawal"},
	{vault.ErrInvalidDeposit, goerrors.CategoryBadInput, http.StatusBadRequest, TextInvalidDeposit,
		"deposit amount must be greater than zero"},
	{chain.ErrInsufficientBalance, goerrors.CategoryOperation, http.StatusUnprocessableEntity, TextInsufficientBalance,
		"sender balance is too low"},
	{chain.ErrNoReceiver, goerrors.CategoryOperation, http.StatusUnprocessableEntity, TextRecipientRejected,
		"recipient cannot receive funds"},
	{chain.ErrZeroAddress, goerrors.CategoryBadInput, http.StatusBadRequest, TextBadInput,
		"recipient is the zero address"},
}

// apiError 把任意错误转成 go-errors 信封
func apiError(err error) *goerrors.Error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich
	}
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return goerrors.New(m.message, m.category).
				WithCode(m.status).
				WithTextCode(m.text)
		}
	}
	if vault.Classify(err) == vault.KindConfiguration {
		return goerrors.New("vault system is not configured: "+err.Error(), goerrors.CategoryInternal).
			WithCode(http.StatusServiceUnavailable).
			WithTextCode(TextConfiguration)
	}
	return goerrors.New(err.Error(), goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextInternal)
}

func badInput(format string, args ...any) *goerrors.Error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextBadInput)
}

func methodNotAllowed(method string) *goerrors.Error {
	return goerrors.New("method "+method+" not allowed", goerrors.CategoryBadInput).
		WithCode(http.StatusMethodNotAllowed).
		WithTextCode(TextMethodNotAllowed)
}

// writeError 写出错误信封；kind 来自核心错误分类
func writeError(w http.ResponseWriter, err error) {
	rich := apiError(err)
	status := rich.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}
	env := errorEnvelope{
		Error:    rich.Message,
		TextCode: rich.TextCode,
		Category: fmt.Sprint(rich.Category),
	}
	if kind := vault.Classify(err); kind != vault.KindUnknown {
		env.Kind = kind.String()
	}
	writeJSON(w, status, env)
}

func devDepositDisabled() *goerrors.Error {
	return goerrors.New("deposits through the API are disabled", goerrors.CategoryAuthz).
		WithCode(http.StatusForbidden).
		WithTextCode(TextDevDepositDisabled)
}
