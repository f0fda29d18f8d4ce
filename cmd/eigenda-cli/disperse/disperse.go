package disperse

import (
	"fmt"
	"os"
	"time"

	clicommon "github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/common"
	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/config"
	"github.com/NilFoundation/eigenda-client/common/logging"
	"github.com/NilFoundation/eigenda-client/core"
	"github.com/spf13/cobra"
)

var logger = logging.NewLogger("disperseCommand")

func GetCommand(cfg *config.Config) *cobra.Command {
	disperseCmd := &cobra.Command{
		Use:   "disperse",
		Short: "Disperse a payload to EigenDA",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, cfg)
		},
	}

	setFlags(disperseCmd)

	return disperseCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&params.file, fileFlag, "", "Read the payload from a file")
	cmd.Flags().StringVar(&params.data, dataFlag, "", "Use the given string as payload")
	cmd.Flags().UintSliceVar(&params.quorums, quorumsFlag, []uint{0, 1}, "Quorums to disperse to")
	cmd.Flags().Uint16Var(&params.version, versionFlag, 0, "Blob version")
	cmd.Flags().BoolVar(&params.advanced, advancedFlag, false, "Meter each quorum against its own reservation")
	cmd.Flags().BoolVar(&params.wait, waitFlag, false, "Poll until the dispersal completes")
	cmd.Flags().StringVar(&params.recordOut, recordOutFlag, "", "Write a dispersal record for later retrieval")
}

func runCommand(cmd *cobra.Command, cfg *config.Config) error {
	payload, err := readPayload()
	if err != nil {
		return err
	}

	client, err := clicommon.NewDisperserClient(cfg, params.advanced)
	if err != nil {
		return err
	}
	defer client.Close()

	quorums := make([]core.QuorumID, len(params.quorums))
	for i, q := range params.quorums {
		quorums[i] = core.QuorumID(q)
	}

	ctx := cmd.Context()
	result, err := client.DisperseBlobDetailed(ctx, payload, core.BlobVersion(params.version), quorums)
	if err != nil {
		return err
	}

	fmt.Printf("blob key: %s\n", result.BlobKey.Hex())
	fmt.Printf("status:   %s\n", result.Status)

	if params.recordOut != "" {
		record := &clicommon.DispersalRecord{
			BlobKey:       result.BlobKey.Hex(),
			PayloadLength: len(payload),
			Header:        result.Header,
		}
		if err := clicommon.SaveDispersalRecord(params.recordOut, record); err != nil {
			return err
		}
		logger.Info().Str(logging.FieldBlobKey, result.BlobKey.Hex()).
			Msgf("dispersal record written to %s", params.recordOut)
	}

	if params.wait {
		logger.Info().Str(logging.FieldBlobKey, result.BlobKey.Hex()).Msg("waiting for completion")
		status, err := client.WaitForComplete(ctx, result.BlobKey, 5*time.Second)
		if err != nil {
			return err
		}
		fmt.Printf("final:    %s\n", status)
	}
	return nil
}

func readPayload() ([]byte, error) {
	switch {
	case params.file != "" && params.data != "":
		return nil, fmt.Errorf("--%s and --%s are mutually exclusive", fileFlag, dataFlag)
	case params.file != "":
		return os.ReadFile(params.file)
	case params.data != "":
		return []byte(params.data), nil
	default:
		return nil, fmt.Errorf("either --%s or --%s is required", fileFlag, dataFlag)
	}
}
