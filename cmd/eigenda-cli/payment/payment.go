package payment

import (
	"fmt"
	"math/big"

	clicommon "github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/common"
	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/config"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func GetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "payment-info",
		Short: "Show the account's payment standing with the disperser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, cfg)
		},
	}
}

func runCommand(cmd *cobra.Command, cfg *config.Config) error {
	client, err := clicommon.NewDisperserClient(cfg, false)
	if err != nil {
		return err
	}
	defer client.Close()

	info, err := client.GetPaymentInfo(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("reservation:        %v\n", info.HasReservation)
	fmt.Printf("cumulative payment: %s gwei\n", gwei(info.CumulativePayment))
	fmt.Printf("on-chain deposit:   %s gwei\n", gwei(info.OnchainCumulativePayment))
	fmt.Printf("price per symbol:   %s gwei\n", gwei(new(big.Int).SetUint64(info.PricePerSymbol)))
	fmt.Printf("min symbols:        %d\n", info.MinNumSymbols)
	fmt.Printf("reservation window: %ds\n", info.ReservationWindow)
	return nil
}

func gwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -9).String()
}
