package retrieve

import (
	"fmt"
	"os"

	"github.com/NilFoundation/eigenda-client/clients"
	clicommon "github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/common"
	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/config"
	"github.com/NilFoundation/eigenda-client/core"
	"github.com/NilFoundation/eigenda-client/encoding/codec"
	"github.com/spf13/cobra"
)

var (
	recordFile     string
	referenceBlock uint32
	quorum         uint8
	output         string
)

func GetCommand(cfg *config.Config) *cobra.Command {
	retrieveCmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Retrieve a dispersed blob from the storage nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, cfg)
		},
	}

	retrieveCmd.Flags().StringVar(&recordFile, "record", "", "Dispersal record written by disperse --record-out")
	retrieveCmd.Flags().Uint32Var(&referenceBlock, "reference-block", 0, "Reference block number of the dispersal batch")
	retrieveCmd.Flags().Uint8Var(&quorum, "quorum", 0, "Quorum to retrieve from")
	retrieveCmd.Flags().StringVar(&output, "output", "", "Write the payload to a file instead of stdout")

	if err := retrieveCmd.MarkFlagRequired("record"); err != nil {
		panic(err)
	}

	return retrieveCmd
}

func runCommand(cmd *cobra.Command, cfg *config.Config) error {
	record, err := clicommon.LoadDispersalRecord(recordFile)
	if err != nil {
		return err
	}

	retrieverCfg := clients.RetrieverClientConfig{
		Hostname:      cfg.RetrieverHost,
		Port:          cfg.RetrieverPort,
		UseSecureGrpc: cfg.UseSecureGrpc,
	}
	client, err := clients.NewRetrieverClient(retrieverCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	encoded, err := client.RetrieveBlob(cmd.Context(), record.Header, referenceBlock, core.QuorumID(quorum))
	if err != nil {
		return err
	}

	payload, err := codec.DecodeBlob(encoded, record.PayloadLength)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(output, payload, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", len(payload), output)
	return nil
}
