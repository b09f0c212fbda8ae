// cmd/vaultd
// 部署（或挂载）授权管理器与 vault，并通过 HTTP/3 暴露查询与提现接口

package main

import (
	"authvault/config"
	"authvault/crt"
	"authvault/handlers"
	"authvault/logs"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

func main() {
	if err := run(); err != nil {
		logs.Error("[vaultd] %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if !logs.SetLevel(cfg.Server.LogLevel) {
		logs.Warn("[vaultd] unknown log level %q", cfg.Server.LogLevel)
	}

	n, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := n.close(); err != nil {
			logs.Error("[vaultd] close db: %v", err)
		}
	}()
	logs.SetPrefix(n.record.SecureVault.Hex()[2:])

	if err := crt.EnsureSelfSigned(cfg.Server.CertFile, cfg.Server.KeyFile, n.record.SecureVault.Hex()); err != nil {
		return fmt.Errorf("tls certificate: %w", err)
	}
	cert, err := tls.LoadX509KeyPair(cfg.Server.CertFile, cfg.Server.KeyFile)
	if err != nil {
		return fmt.Errorf("load certificate: %w", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{"h3", "http/1.1"},
	}

	hm := handlers.NewHandlerManager(n.chain, n.store, n.system, cfg.Server)
	handler := hm.Handler()
	stop := make(chan struct{})
	defer close(stop)
	hm.Limiter().StartIPCleanup(2*time.Minute, stop)

	server := &http3.Server{
		Addr:      cfg.Server.ListenAddr,
		Handler:   handler,
		TLSConfig: tlsConfig,
		QUICConfig: &quic.Config{
			KeepAlivePeriod: 10 * time.Second,
			MaxIdleTimeout:  5 * time.Minute,
		},
	}
	// TCP TLS 监听，便于 curl 等不支持 QUIC 的工具访问
	tcpServer := &http.Server{
		Addr:      cfg.Server.ListenAddr,
		Handler:   handler,
		TLSConfig: tlsConfig,
	}

	errCh := make(chan error, 2)
	go func() {
		logs.Info("[vaultd] HTTP/3 listening on %s", cfg.Server.ListenAddr)
		errCh <- server.ListenAndServe()
	}()
	go func() {
		if err := tcpServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logs.Info("[vaultd] received %s, shutting down", sig)
	case err := <-errCh:
		logs.Error("[vaultd] server stopped: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tcpServer.Shutdown(ctx); err != nil {
		logs.Warn("[vaultd] tcp shutdown: %v", err)
	}
	return server.Close()
}
