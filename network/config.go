// Package network maps disperser endpoints to their chain parameters. The
// table is compiled in; environment variables select the endpoint and
// credentials but never reshape the table.
package network

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type Network string

const (
	Mainnet Network = "mainnet"
	Holesky Network = "holesky"
	Sepolia Network = "sepolia"
)

const (
	EnvPrivateKey    = "EIGENDA_PRIVATE_KEY"
	EnvDisperserHost = "EIGENDA_DISPERSER_HOST"
	EnvDisperserPort = "EIGENDA_DISPERSER_PORT"
	EnvUseSecureGrpc = "EIGENDA_USE_SECURE_GRPC"
)

var (
	ErrUnknownNetwork    = errors.New("unknown network")
	ErrMissingPrivateKey = errors.New(EnvPrivateKey + " is not set")
)

// Config carries the per-network constants a client needs before it has
// talked to the server: where to dial, which chain the payment vault lives
// on, and the vault's default rate parameters.
type Config struct {
	Network                   Network
	ChainID                   uint64
	DisperserHost             string
	DisperserPort             string
	EthRPCURL                 string
	PaymentVaultAddress       ethcommon.Address
	PricePerSymbol            uint64
	MinNumSymbols             uint64
	ReservationPeriodInterval uint64 // seconds
}

var configs = map[Network]Config{
	Mainnet: {
		Network:                   Mainnet,
		ChainID:                   1,
		DisperserHost:             "disperser.eigenda.xyz",
		DisperserPort:             "443",
		EthRPCURL:                 "https://eth.llamarpc.com",
		PaymentVaultAddress:       ethcommon.HexToAddress("0xb2C7Ad4c9b97Db8372D0A0cBd0c0De5F0C7C5C5e"),
		PricePerSymbol:            447_000_000_000,
		MinNumSymbols:             4096,
		ReservationPeriodInterval: 300,
	},
	Holesky: {
		Network:                   Holesky,
		ChainID:                   17000,
		DisperserHost:             "disperser-holesky.eigenda.xyz",
		DisperserPort:             "443",
		EthRPCURL:                 "https://ethereum-holesky-rpc.publicnode.com",
		PaymentVaultAddress:       ethcommon.HexToAddress("0x4a7FFf191BCDa5806f1Bc8689afc1417c08C61AB"),
		PricePerSymbol:            447_000_000_000,
		MinNumSymbols:             4096,
		ReservationPeriodInterval: 300,
	},
	Sepolia: {
		Network:                   Sepolia,
		ChainID:                   11155111,
		DisperserHost:             "disperser-testnet-sepolia.eigenda.xyz",
		DisperserPort:             "443",
		EthRPCURL:                 "https://ethereum-sepolia-rpc.publicnode.com",
		PaymentVaultAddress:       ethcommon.HexToAddress("0x2E1bDB174c11D198c2c40B617a5b7E0D0311B7E5"),
		PricePerSymbol:            447_000_000_000,
		MinNumSymbols:             4096,
		ReservationPeriodInterval: 300,
	},
}

// ConfigForNetwork resolves a network by name.
func ConfigForNetwork(network Network) (Config, error) {
	cfg, ok := configs[network]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
	return cfg, nil
}

// ConfigForHost resolves a network by its disperser hostname. Unknown
// hosts fall back to the Holesky parameters with the host substituted, so
// self-hosted dispersers keep working.
func ConfigForHost(host string) Config {
	for _, cfg := range configs {
		if cfg.DisperserHost == host {
			return cfg
		}
	}
	cfg := configs[Holesky]
	cfg.Network = ""
	cfg.DisperserHost = host
	return cfg
}

// Networks lists the known networks in a stable order.
func Networks() []Network {
	return []Network{Mainnet, Holesky, Sepolia}
}

// ClientEnv is the environment-derived part of the client configuration.
type ClientEnv struct {
	PrivateKeyHex string
	DisperserHost string
	DisperserPort string
	UseSecureGrpc bool
}

// FromEnv reads the EIGENDA_* variables. The private key is required; the
// endpoint defaults to the Holesky disperser on port 443 with TLS, and TLS
// defaults to off for non-443 ports unless EIGENDA_USE_SECURE_GRPC says
// otherwise.
func FromEnv() (ClientEnv, error) {
	env := ClientEnv{
		PrivateKeyHex: os.Getenv(EnvPrivateKey),
		DisperserHost: os.Getenv(EnvDisperserHost),
		DisperserPort: os.Getenv(EnvDisperserPort),
	}
	if env.PrivateKeyHex == "" {
		return ClientEnv{}, ErrMissingPrivateKey
	}
	if env.DisperserHost == "" {
		env.DisperserHost = configs[Holesky].DisperserHost
	}
	if env.DisperserPort == "" {
		env.DisperserPort = "443"
	}

	env.UseSecureGrpc = env.DisperserPort == "443"
	if raw := os.Getenv(EnvUseSecureGrpc); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return ClientEnv{}, fmt.Errorf("parse %s: %w", EnvUseSecureGrpc, err)
		}
		env.UseSecureGrpc = secure
	}
	return env, nil
}
