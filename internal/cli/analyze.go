package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/tsanders-rh/lactl/internal/discovery"
	"github.com/tsanders-rh/lactl/internal/runner"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
)

var (
	regionFlag = &cli.StringFlag{
		Name:  "region",
		Usage: "Azure region of the workspaces (e.g., eastus or \"East US\")",
	}
	tagKeyFlag = &cli.StringFlag{
		Name:  "tag-key",
		Usage: "only include workspaces carrying this tag (requires --tag-value)",
	}
	tagValueFlag = &cli.StringFlag{
		Name:  "tag-value",
		Usage: "required value of --tag-key",
	}
	subscriptionsFlag = &cli.StringFlag{
		Name:  "subscriptions",
		Usage: "JSON file listing the subscriptions to search (default: all accessible)",
	}
	profileFlag = &cli.StringFlag{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "cluster profile supplying defaults",
	}
	dryRunFlag = &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "report what would be done without changing anything",
	}
)

func analyzeCmd(connect Connector) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Classify workspace ingestion and recommend a commitment tier",
		Description: `Discover Log Analytics workspaces, sum their billable ingestion over the
window by billing plan (Analytics, Basic, Auxiliary) and recommend the
commitment tier matching the average daily Analytics volume.

The region is optional: without it every region is analyzed.`,
		Flags: []cli.Flag{
			regionFlag,
			tagKeyFlag,
			tagValueFlag,
			subscriptionsFlag,
			profileFlag,
			&cli.IntFlag{
				Name:  "days",
				Value: 30,
				Usage: "length of the analysis window in days",
			},
			&cli.BoolFlag{
				Name:  "include-empty",
				Usage: "include workspaces with no ingestion in the report",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			days := int(cmd.Int("days"))
			if days <= 0 {
				return lerrors.New(lerrors.ErrCodeInvalidRequest, fmt.Sprintf("--days must be positive, got %d", days))
			}

			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			req := runner.AnalyzeRequest{
				Profile: cmd.String("profile"),
				Filter: discovery.Filter{
					Region:   cmd.String("region"),
					TagKey:   cmd.String("tag-key"),
					TagValue: cmd.String("tag-value"),
				},
				Days:         days,
				IncludeEmpty: cmd.Bool("include-empty"),
			}
			subscriptionsFile := cmd.String("subscriptions")

			if req.Profile != "" {
				registry, err := e.profiles()
				if err != nil {
					return err
				}
				prof, err := registry.Get(req.Profile)
				if err != nil {
					return err
				}
				if req.Filter.Region == "" {
					req.Filter.Region = prof.Cluster.Region
				}
				if !req.Filter.HasTag() && req.Filter.TagValue == "" {
					req.Filter.TagKey = prof.Discovery.TagKey
					req.Filter.TagValue = prof.Discovery.TagValue
				}
				if subscriptionsFile == "" {
					subscriptionsFile = prof.Discovery.SubscriptionsFile
				}
				req.Recommender, err = prof.Recommender()
				if err != nil {
					return err
				}
			}

			if err := req.Filter.Validate(false); err != nil {
				return err
			}

			r, err := e.runner(ctx, connect, subscriptionsFile)
			if err != nil {
				return err
			}

			report, err := r.Analyze(ctx, req)
			if err != nil {
				return err
			}

			return writeResult(ctx, cmd, e.log, report)
		},
	}
}
