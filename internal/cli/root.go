package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/cost-anomaly-relay/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRootCmd assembles the relayctl command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "relayctl",
		Short: "Cost anomaly relay - post AWS Cost Anomaly Detection events to Slack",
		Long: `relayctl runs the cost anomaly relay outside Lambda. It can replay an SNS
event through the full pipeline or render the Slack blocks for inspection.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./relay.yaml)")

	load := func() (*config.Config, error) {
		return config.Load(cfgFile)
	}

	root.AddCommand(newInvokeCmd(load))
	root.AddCommand(newRenderCmd(load))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type configLoader func() (*config.Config, error)

// readEnvelope reads an SNS event from path. A file holding a bare anomaly
// record is wrapped into a single-record envelope.
func readEnvelope(path string) (events.SNSEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return events.SNSEvent{}, fmt.Errorf("read event file: %w", err)
	}

	var shape struct {
		Records json.RawMessage `json:"Records"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return events.SNSEvent{}, fmt.Errorf("parse event file %s: %w", path, err)
	}

	if shape.Records == nil {
		return events.SNSEvent{Records: []events.SNSEventRecord{{
			EventSource: "aws:sns",
			SNS:         events.SNSEntity{Message: string(data)},
		}}}, nil
	}

	var envelope events.SNSEvent
	if err := json.Unmarshal(data, &envelope); err != nil {
		return events.SNSEvent{}, fmt.Errorf("parse sns event %s: %w", path, err)
	}
	return envelope, nil
}
