package handlers

import (
	"authvault/chain"
	"authvault/config"
	"authvault/db"
	"authvault/middleware"
	"authvault/stats"
	"authvault/vault"
	"net/http"
	"time"
)

// HandlerManager 管理所有HTTP处理器及其依赖
type HandlerManager struct {
	chain     *chain.Chain
	dbManager *db.Manager
	system    *vault.System

	limiter    *middleware.RateLimiter
	devDeposit bool

	// 统计相关字段
	Stats *stats.Stats
}

// NewHandlerManager 创建新的处理器管理器
func NewHandlerManager(c *chain.Chain, dbMgr *db.Manager, sys *vault.System, cfg config.ServerConfig) *HandlerManager {
	return &HandlerManager{
		chain:      c,
		dbManager:  dbMgr,
		system:     sys,
		limiter:    middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		devDeposit: cfg.EnableDevDeposit,
		Stats:      stats.NewStats(),
	}
}

// RegisterRoutes 注册所有路由
func (hm *HandlerManager) RegisterRoutes(mux *http.ServeMux) {
	// 查询
	mux.HandleFunc("/vault/stats", hm.timed("vault_stats", hm.HandleVaultStats))
	mux.HandleFunc("/authz/config", hm.timed("authz_config", hm.HandleAuthzConfig))
	mux.HandleFunc("/authz/consumed", hm.timed("authz_consumed", hm.HandleConsumed))
	mux.HandleFunc("/authz/consumed/list", hm.timed("authz_consumed_list", hm.HandleConsumedList))
	mux.HandleFunc("/authz/hash", hm.timed("authz_hash", hm.HandleAuthorizationHash))
	// 资金
	mux.HandleFunc("/vault/withdraw", hm.timed("vault_withdraw", hm.HandleWithdraw))
	mux.HandleFunc("/vault/deposit", hm.timed("vault_deposit", hm.HandleDeposit))
	// 运维
	mux.HandleFunc("/stats", hm.timed("stats", hm.HandleStats))
}

// Handler 带限流的完整路由
func (hm *HandlerManager) Handler() http.Handler {
	mux := http.NewServeMux()
	hm.RegisterRoutes(mux)
	return hm.limiter.RateLimit(mux)
}

// Limiter 限流器（用于启动后台清理）
func (hm *HandlerManager) Limiter() *middleware.RateLimiter { return hm.limiter }

func (hm *HandlerManager) timed(name string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hm.Stats.RecordAPICall(name)
		start := time.Now()
		fn(w, r)
		hm.Stats.RecordLatency(name, time.Since(start))
	}
}
