package main

import (
	"os"

	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/config"
	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/disperse"
	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/payment"
	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/retrieve"
	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/status"
	"github.com/NilFoundation/eigenda-client/common/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type RootCommand struct {
	baseCmd *cobra.Command
	config  config.Config
	cfgFile string
}

var logger = logging.NewLogger("rootCommand")

func main() {
	logging.SetLogSeverityFromEnv()

	rootCmd := &RootCommand{}
	rootCmd.baseCmd = &cobra.Command{
		Use:   "eigenda-cli",
		Short: "CLI tool for dispersing and retrieving EigenDA blobs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.loadConfig()
		},
	}

	rootCmd.baseCmd.PersistentFlags().StringVarP(&rootCmd.cfgFile, "config", "c", "", "Path to config file")

	rootCmd.registerSubCommands()
	rootCmd.Execute()
}

func (rc *RootCommand) loadConfig() error {
	if rc.cfgFile != "" {
		viper.SetConfigFile(rc.cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return err
		}
		if err := viper.Unmarshal(&rc.config); err != nil {
			return err
		}
	}
	return rc.config.ApplyEnv()
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		disperse.GetCommand(&rc.config),
		status.GetCommand(&rc.config),
		retrieve.GetCommand(&rc.config),
		payment.GetCommand(&rc.config),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
