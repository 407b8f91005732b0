package cli

import (
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/accounts"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/anomaly"
	"github.com/ogulcanaydogan/cost-anomaly-relay/pkg/blocks"
)

func newRenderCmd(load configLoader) *cobra.Command {
	var (
		eventPath      string
		output         string
		accountNames   map[string]string
		lookupAccounts bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the Slack blocks for an anomaly event without posting them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q (want json or yaml)", output)
			}

			envelope, err := readEnvelope(eventPath)
			if err != nil {
				return err
			}
			ev, err := anomaly.Decode(envelope)
			if err != nil {
				return err
			}

			var resolver accounts.Resolver = accounts.Static(accountNames)
			if lookupAccounts {
				cfg, err := load()
				if err != nil {
					return err
				}
				awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), awsconfig.WithRegion(cfg.Secret.Region))
				if err != nil {
					return fmt.Errorf("load aws config: %w", err)
				}
				resolver = accounts.NewOrganizations(organizations.NewFromConfig(awsCfg))
			}

			msg, err := blocks.NewBuilder(resolver, zap.NewNop()).Build(cmd.Context(), ev)
			if err != nil {
				return fmt.Errorf("build slack message: %w", err)
			}

			return writeBlocks(cmd, msg, output)
		},
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "", "SNS event or anomaly record JSON file")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json, yaml)")
	cmd.Flags().StringToStringVar(&accountNames, "account", nil, "Account name for a linked account id (id=name, repeatable)")
	cmd.Flags().BoolVar(&lookupAccounts, "lookup-accounts", false, "Resolve linked account names through AWS Organizations")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func writeBlocks(cmd *cobra.Command, msg any, output string) error {
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal blocks: %w", err)
	}

	if output == "json" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("convert blocks: %w", err)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return enc.Close()
}
