package status

import (
	"fmt"
	"time"

	clicommon "github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/common"
	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/config"
	"github.com/NilFoundation/eigenda-client/core"
	"github.com/spf13/cobra"
)

var wait bool

func GetCommand(cfg *config.Config) *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status <blob-key>",
		Short: "Query the dispersal status of a blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, args[0], cfg)
		},
	}

	statusCmd.Flags().BoolVar(&wait, "wait", false, "Poll until the status is terminal")

	return statusCmd
}

func runCommand(cmd *cobra.Command, blobKeyHex string, cfg *config.Config) error {
	blobKey, err := core.BlobKeyFromHex(blobKeyHex)
	if err != nil {
		return err
	}

	client, err := clicommon.NewDisperserClient(cfg, false)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := cmd.Context()
	var status core.BlobStatus
	if wait {
		status, err = client.WaitForComplete(ctx, blobKey, 5*time.Second)
	} else {
		status, err = client.GetBlobStatus(ctx, blobKey)
	}
	if err != nil {
		return err
	}
	fmt.Printf("status: %s\n", status)
	return nil
}
