package common

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/NilFoundation/eigenda-client/clients"
	"github.com/NilFoundation/eigenda-client/cmd/eigenda-cli/config"
	"github.com/NilFoundation/eigenda-client/core"
	"github.com/NilFoundation/eigenda-client/core/auth"
)

// NewDisperserClient wires a signer and an accountant to the configured
// disperser endpoint. Advanced mode meters every quorum against its own
// reservation.
func NewDisperserClient(cfg *config.Config, advanced bool) (*clients.DisperserClient, error) {
	signer, err := auth.NewLocalBlobRequestSigner(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	var accountant clients.Accountant
	if advanced {
		accountant = clients.NewQuorumAccountant()
	} else {
		accountant = clients.NewReservationAccountant()
	}

	clientCfg := clients.NewDisperserClientConfig(cfg.DisperserHost, cfg.DisperserPort, cfg.UseSecureGrpc)
	return clients.NewDisperserClient(clientCfg, signer, accountant, nil)
}

// DispersalRecord is what the retrieve command needs later: the header the
// blob was dispersed under plus the original payload length for decoding.
type DispersalRecord struct {
	BlobKey       string           `json:"blobKey"`
	PayloadLength int              `json:"payloadLength"`
	Header        *core.BlobHeader `json:"header"`
}

func SaveDispersalRecord(path string, record *DispersalRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func LoadDispersalRecord(path string) (*DispersalRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record DispersalRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse dispersal record %s: %w", path, err)
	}
	return &record, nil
}
