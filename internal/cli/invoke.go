package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/cost-anomaly-relay/internal/logging"
	"github.com/ogulcanaydogan/cost-anomaly-relay/internal/relay"
)

func newInvokeCmd(load configLoader) *cobra.Command {
	var eventPath string

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Relay an SNS anomaly event to Slack",
		Long: `Run the full pipeline against a local event file: fetch the webhook URL
from Secrets Manager, resolve linked account names through Organizations and
post the message to Slack.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			envelope, err := readEnvelope(eventPath)
			if err != nil {
				return err
			}

			handler, err := relay.NewAWS(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			resp, err := handler.Handle(cmd.Context(), envelope)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "", "SNS event or anomaly record JSON file")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}
