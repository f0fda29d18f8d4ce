package config

import (
	"github.com/NilFoundation/eigenda-client/network"
)

type Config struct {
	PrivateKey     string `mapstructure:"private_key"`
	DisperserHost  string `mapstructure:"disperser_host"`
	DisperserPort  string `mapstructure:"disperser_port"`
	UseSecureGrpc  bool   `mapstructure:"use_secure_grpc"`
	RetrieverHost  string `mapstructure:"retriever_host"`
	RetrieverPort  string `mapstructure:"retriever_port"`
	EthRPCEndpoint string `mapstructure:"eth_rpc_endpoint"`
}

// ApplyEnv fills unset fields from the EIGENDA_* environment variables and
// the compiled-in network defaults.
func (c *Config) ApplyEnv() error {
	env, err := network.FromEnv()
	if err != nil && c.PrivateKey == "" {
		return err
	}
	if c.PrivateKey == "" {
		c.PrivateKey = env.PrivateKeyHex
	}
	if c.DisperserHost == "" && env.DisperserHost != "" {
		c.DisperserHost = env.DisperserHost
		c.DisperserPort = env.DisperserPort
		c.UseSecureGrpc = env.UseSecureGrpc
	}
	if c.DisperserHost == "" {
		holesky, err := network.ConfigForNetwork(network.Holesky)
		if err != nil {
			return err
		}
		c.DisperserHost = holesky.DisperserHost
		c.UseSecureGrpc = true
	}
	if c.DisperserPort == "" {
		c.DisperserPort = "443"
	}
	if c.EthRPCEndpoint == "" {
		c.EthRPCEndpoint = network.ConfigForHost(c.DisperserHost).EthRPCURL
	}
	return nil
}

// NetworkConfig resolves the compiled-in parameters for the configured
// disperser.
func (c *Config) NetworkConfig() network.Config {
	return network.ConfigForHost(c.DisperserHost)
}
