package cli

import (
	"context"
	"fmt"
	"os"

	"cdr.dev/slog/v3"
	"github.com/urfave/cli/v3"

	"github.com/tsanders-rh/lactl/internal/policy"
	"github.com/tsanders-rh/lactl/internal/runner"
	"github.com/tsanders-rh/lactl/internal/serializer"
	"github.com/tsanders-rh/lactl/pkg/types"
)

func provisionCmd(connect Connector) *cli.Command {
	return &cli.Command{
		Name:  "provision",
		Usage: "Create or adopt a dedicated cluster and link matching workspaces",
		Description: `Validate the request, create the dedicated cluster (or adopt it when it
already exists), wait until provisioning reaches a terminal state and link
every workspace in the region that carries the tag.

Fields left unset are taken from --profile. A link failure on one workspace
never fails the run.`,
		Flags: []cli.Flag{
			profileFlag,
			&cli.StringFlag{
				Name:  "subscription",
				Usage: "subscription ID that owns the cluster",
			},
			&cli.StringFlag{
				Name:  "resource-group",
				Usage: "resource group of the cluster",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "cluster name (4-63 letters, digits or hyphens)",
			},
			regionFlag,
			&cli.IntFlag{
				Name:  "capacity",
				Usage: "commitment tier capacity in GB/day",
			},
			tagKeyFlag,
			tagValueFlag,
			&cli.StringMapFlag{
				Name:  "tag",
				Usage: "extra cluster tag as key=value (repeatable)",
			},
			subscriptionsFlag,
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "interval between provisioning state checks (default 5m)",
			},
			&cli.DurationFlag{
				Name:  "max-wait",
				Usage: "maximum time to wait for provisioning (default 2h30m)",
			},
			&cli.StringFlag{
				Name:  "template",
				Usage: "write the rendered ARM deployment template to this file",
			},
			dryRunFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			req := &types.ProvisionRequest{
				Profile:          cmd.String("profile"),
				SubscriptionID:   cmd.String("subscription"),
				ResourceGroup:    cmd.String("resource-group"),
				Name:             cmd.String("name"),
				Region:           cmd.String("region"),
				CapacityGBPerDay: int(cmd.Int("capacity")),
				TagKey:           cmd.String("tag-key"),
				TagValue:         cmd.String("tag-value"),
				PollInterval:     cmd.Duration("poll-interval"),
				MaxWait:          cmd.Duration("max-wait"),
				ExtraTags:        cmd.StringMap("tag"),
			}

			renderer, err := e.renderer(req.Profile)
			if err != nil {
				return err
			}

			result, err := policy.NewEngine(renderer, nil).ValidateProvisionRequest(req)
			if err != nil {
				return err
			}
			if err := result.Err(); err != nil {
				return err
			}

			if path := cmd.String("template"); path != "" {
				template, err := renderer.RenderARMTemplate(result.Spec)
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, template, 0o644); err != nil {
					return fmt.Errorf("write template: %w", err)
				}
				e.log.Info(ctx, "wrote deployment template", slog.F("path", path))
			}

			subscriptionsFile := cmd.String("subscriptions")
			if subscriptionsFile == "" && result.Profile != nil {
				subscriptionsFile = result.Profile.Discovery.SubscriptionsFile
			}

			r, err := e.runner(ctx, connect, subscriptionsFile)
			if err != nil {
				return err
			}

			res, err := r.Provision(ctx, result, cmd.Bool("dry-run"))
			if err != nil {
				return err
			}

			return writeResult(ctx, cmd, e.log, provisionView{res})
		},
	}
}

// provisionView renders a provision result as cluster and link tables
type provisionView struct {
	*runner.ProvisionResult
}

func (v provisionView) Tables() []serializer.Table {
	tables := []serializer.Table{serializer.RunTable(v.Run)}
	if v.Cluster != nil {
		tables = append(tables, serializer.ClusterTable(v.Cluster))
	}
	return append(tables, serializer.LinkTable(v.Links))
}
