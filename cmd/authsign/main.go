// cmd/authsign
// 指定签名者的离线签名工具：构造授权、输出规范哈希、签名和可直接提交的提现请求体

package main

import (
	"authvault/authz"
	"authvault/handlers"
	"authvault/logs"
	"authvault/signer"
	"authvault/types"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// signerKeyEnv 私钥环境变量，-key 优先
const signerKeyEnv = "AUTH_SIGNER_KEY"

type cliConfig struct {
	Key       string
	Vault     string
	Recipient string
	Amount    string // ether
	Nonce     string
	Network   uint64
	JSON      bool
}

func parseConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (cliConfig, error) {
	cfg := cliConfig{Network: 31337}
	fs.StringVar(&cfg.Key, "key", "", "signer private key, hex or WIF (default $"+signerKeyEnv+")")
	fs.StringVar(&cfg.Vault, "vault", "", "SecureVault address")
	fs.StringVar(&cfg.Recipient, "recipient", "", "recipient address")
	fs.StringVar(&cfg.Amount, "amount", "", "amount in ether, e.g. 0.5")
	fs.StringVar(&cfg.Nonce, "nonce", "", "authorization nonce")
	fs.Uint64Var(&cfg.Network, "network", cfg.Network, "network id")
	fs.BoolVar(&cfg.JSON, "json", false, "print the /vault/withdraw request body only")
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	if cfg.Key == "" && getenv != nil {
		cfg.Key = strings.TrimSpace(getenv(signerKeyEnv))
	}

	switch {
	case cfg.Key == "":
		return cliConfig{}, errors.New("signer key is required (-key or " + signerKeyEnv + ")")
	case cfg.Vault == "", cfg.Recipient == "", cfg.Amount == "", cfg.Nonce == "":
		return cliConfig{}, errors.New("-vault, -recipient, -amount and -nonce are required")
	}
	return cfg, nil
}

func (cfg cliConfig) authorization() (*types.Authorization, error) {
	vault, err := types.ParseAddress(cfg.Vault)
	if err != nil {
		return nil, err
	}
	recipient, err := types.ParseAddress(cfg.Recipient)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseUnits(cfg.Amount)
	if err != nil {
		return nil, err
	}
	nonce, err := types.ParseUint256(cfg.Nonce)
	if err != nil {
		return nil, err
	}
	return &types.Authorization{
		Vault:     vault,
		Recipient: recipient,
		Amount:    amount,
		Nonce:     nonce,
		NetworkID: new(big.Int).SetUint64(cfg.Network),
	}, nil
}

func run(cfg cliConfig, out io.Writer) error {
	s, err := signer.New(cfg.Key)
	if err != nil {
		return err
	}
	auth, err := cfg.authorization()
	if err != nil {
		return err
	}
	hash, err := authz.HashAuthorization(auth)
	if err != nil {
		return err
	}
	sig, err := s.SignHash(hash)
	if err != nil {
		return err
	}

	body := handlers.WithdrawRequest{
		Authorization: handlers.AuthorizationRequest{
			Vault:     auth.Vault.Hex(),
			Recipient: auth.Recipient.Hex(),
			Amount:    auth.Amount.String(),
			Nonce:     auth.Nonce.String(),
			NetworkID: auth.NetworkID.String(),
		},
		Signature: hexutil.Encode(sig),
	}
	if cfg.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(body)
	}

	_, err = fmt.Fprintf(out, "signer:    %s\nhash:      %s\ndigest:    %s\nsignature: %s\n",
		s.Address().Hex(), hash.Hex(), authz.SigningDigest(hash).Hex(), body.Signature)
	return err
}

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		logs.Error("[authsign] %v", err)
		os.Exit(2)
	}
	if err := run(cfg, os.Stdout); err != nil {
		logs.Error("[authsign] %v", err)
		os.Exit(1)
	}
}
