// crt/cert.go
// HTTP/3 监听使用的自签名证书：文件不存在时生成，证书组织字段写入 vault 地址

package crt

import (
	"authvault/logs"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// validity 证书有效期
const validity = 365 * 24 * time.Hour

// EnsureSelfSigned 证书和私钥都存在时直接复用，否则重新生成
func EnsureSelfSigned(certPath, keyPath, organization string) error {
	if fileExists(certPath) && fileExists(keyPath) {
		if _, err := tls.LoadX509KeyPair(certPath, keyPath); err == nil {
			return nil
		}
		logs.Warn("[crt] existing certificate pair unusable, regenerating")
	}
	return generateSelfSignedCert(certPath, keyPath, organization)
}

func generateSelfSignedCert(certPath, keyPath, organization string) error {
	// 生成 ECDSA 私钥
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}

	// 创建证书模板
	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			Organization: []string{organization},
			CommonName:   "localhost",
		},
		NotBefore: time.Now().Add(-time.Minute),
		NotAfter:  time.Now().Add(validity),
		KeyUsage:  x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
	}

	// 自签名证书
	certBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return err
	}
	privBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return err
	}

	if err := writePEM(certPath, "CERTIFICATE", certBytes, 0644); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	if err := writePEM(keyPath, "EC PRIVATE KEY", privBytes, 0600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}

	logs.Debug("[crt] certificate generated cert=%s key=%s org=%s", certPath, keyPath, organization)
	return nil
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
