package handlers

import (
	"authvault/chain"
	"authvault/logs"
	"authvault/stats"
	"authvault/types"
	"authvault/vault"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HandleVaultStats vault 记账视图与实际托管余额
func (hm *HandlerManager) HandleVaultStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	v := hm.system.Vault
	var resp VaultStatsResponse
	err := hm.chain.View(func(tx *chain.Tx) error {
		st, err := v.State(tx)
		if err != nil {
			return err
		}
		custody, err := tx.BalanceOf(v.Address())
		if err != nil {
			return err
		}
		resp = VaultStatsResponse{
			Vault:          v.Address().Hex(),
			Verifier:       v.Verifier().Hex(),
			TotalDeposited: newAmount(st.TotalDeposited),
			TotalWithdrawn: newAmount(st.TotalWithdrawn),
			CurrentBalance: newAmount(st.CurrentBalance),
			Custodied:      newAmount(custody),
			InvariantOK:    custody.Cmp(st.CurrentBalance) == 0,
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if !resp.InvariantOK {
		logs.Error("[handlers] vault %s accounting %s != custody %s", resp.Vault, resp.CurrentBalance.Wei, resp.Custodied.Wei)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleWithdraw 提交 (authorization, signature)；交易发起者为收款人
func (hm *HandlerManager) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req WithdrawRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	auth, err := req.Authorization.toAuthorization()
	if err != nil {
		writeError(w, badInput("%v", err))
		return
	}
	sig, err := hexutil.Decode(strings.TrimSpace(req.Signature))
	if err != nil {
		writeError(w, badInput("signature: %v", err))
		return
	}

	var hash common.Hash
	err = hm.chain.Execute(auth.Recipient, func(tx *chain.Tx) error {
		var err error
		hash, err = hm.system.Vault.Withdraw(tx, auth, sig)
		return err
	})
	if err != nil {
		hm.Stats.RecordOutcome(vault.Classify(err).String())
		logs.Warn("[handlers] withdraw rejected recipient=%s amount=%s code=%s err=%v",
			auth.Recipient.Hex(), auth.Amount, apiError(err).TextCode, err)
		writeError(w, err)
		return
	}

	hm.Stats.RecordOutcome(stats.OutcomeOK)
	logs.Info("[handlers] withdraw %s ether to %s hash=%s",
		types.FormatUnits(auth.Amount), auth.Recipient.Hex(), hash.Hex())
	writeJSON(w, http.StatusOK, WithdrawResponse{
		Hash:      hash.Hex(),
		Recipient: auth.Recipient.Hex(),
		Amount:    newAmount(auth.Amount),
	})
}

// HandleDeposit devnet 存款：从 from 账户向 vault 转账
func (hm *HandlerManager) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if !hm.devDeposit {
		writeError(w, devDepositDisabled())
		return
	}

	var req DepositRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	from, err := types.ParseAddress(req.From)
	if err != nil {
		writeError(w, badInput("from: %v", err))
		return
	}
	amount, err := types.ParseUnits(req.Amount)
	if err != nil {
		writeError(w, badInput("amount: %v", err))
		return
	}

	var total *big.Int
	err = hm.chain.Execute(from, func(tx *chain.Tx) error {
		if err := hm.system.Vault.Deposit(tx, from, amount); err != nil {
			return err
		}
		var err error
		total, err = hm.system.Vault.TotalDeposited(tx)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	logs.Info("[handlers] deposit %s ether from %s", types.FormatUnits(amount), from.Hex())
	writeJSON(w, http.StatusOK, DepositResponse{
		From:           from.Hex(),
		Amount:         newAmount(amount),
		TotalDeposited: newAmount(total),
	})
}

// HandleStats API 统计
func (hm *HandlerManager) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats": hm.Stats.Snapshot(),
		"db":    hm.dbManager.Metrics(),
	})
}
