package handlers

import (
	"authvault/authz"
	"authvault/chain"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HandleAuthzConfig 签名者、绑定的 vault 与执行网络
func (hm *HandlerManager) HandleAuthzConfig(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	mgr := hm.system.Manager
	resp := AuthzConfigResponse{
		Manager:     mgr.Address().Hex(),
		NetworkName: hm.chain.Name(),
		NetworkID:   hm.chain.NetworkID().String(),
	}
	err := hm.chain.View(func(tx *chain.Tx) error {
		signer, err := mgr.Signer(tx)
		if err != nil {
			return err
		}
		resp.Signer = signer.Hex()

		bound, ok, err := mgr.BoundVault(tx)
		if err != nil {
			return err
		}
		if ok {
			resp.BoundVault = bound.Hex()
		}
		st, err := mgr.Status(tx)
		resp.Status = st.String()
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleConsumed 查询 ?hash=0x.. 是否已被消费
func (hm *HandlerManager) HandleConsumed(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("hash"))
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != common.HashLength {
		writeError(w, badInput("hash must be a 0x-prefixed 32-byte hex string"))
		return
	}
	hash := common.BytesToHash(b)

	var consumed bool
	err = hm.chain.View(func(tx *chain.Tx) error {
		var err error
		consumed, err = hm.system.Manager.IsConsumed(tx, hash)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConsumedResponse{Hash: hash.Hex(), Consumed: consumed})
}

// HandleConsumedList 列出全部已消费哈希
func (hm *HandlerManager) HandleConsumedList(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	hashes, err := hm.system.Manager.ListConsumed(hm.dbManager)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.Hex()
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "hashes": out})
}

// HandleAuthorizationHash 计算授权的规范哈希与签名摘要，便于签名方核对
func (hm *HandlerManager) HandleAuthorizationHash(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req AuthorizationRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	auth, err := req.toAuthorization()
	if err != nil {
		writeError(w, badInput("%v", err))
		return
	}
	encoded, err := authz.Encode(auth)
	if err != nil {
		writeError(w, err)
		return
	}
	hash, err := authz.HashAuthorization(auth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{
		Hash:          hash.Hex(),
		SigningDigest: authz.SigningDigest(hash).Hex(),
		Encoded:       hexutil.Encode(encoded),
	})
}
