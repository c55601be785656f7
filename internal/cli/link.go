package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/tsanders-rh/lactl/internal/policy"
	"github.com/tsanders-rh/lactl/internal/runner"
	"github.com/tsanders-rh/lactl/internal/serializer"
	"github.com/tsanders-rh/lactl/pkg/types"
)

func linkCmd(connect Connector) *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Link matching workspaces to an existing dedicated cluster",
		Description: `Discover the workspaces in the region that carry the tag and link each
one to the cluster. Workspaces already linked to the cluster count as
successes. Failures are reported per workspace and never fail the run.`,
		Flags: []cli.Flag{
			profileFlag,
			&cli.StringFlag{
				Name:  "cluster-id",
				Usage: "ARM resource ID of the dedicated cluster",
			},
			regionFlag,
			tagKeyFlag,
			tagValueFlag,
			subscriptionsFlag,
			dryRunFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			req := &types.LinkRequest{
				Profile:   cmd.String("profile"),
				ClusterID: cmd.String("cluster-id"),
				Region:    cmd.String("region"),
				TagKey:    cmd.String("tag-key"),
				TagValue:  cmd.String("tag-value"),
				DryRun:    cmd.Bool("dry-run"),
			}

			renderer, err := e.renderer(req.Profile)
			if err != nil {
				return err
			}

			result, err := policy.NewEngine(renderer, nil).ValidateLinkRequest(req)
			if err != nil {
				return err
			}
			if err := result.Err(); err != nil {
				return err
			}

			subscriptionsFile := cmd.String("subscriptions")
			if subscriptionsFile == "" && result.Profile != nil {
				subscriptionsFile = result.Profile.Discovery.SubscriptionsFile
			}

			r, err := e.runner(ctx, connect, subscriptionsFile)
			if err != nil {
				return err
			}

			res, err := r.Link(ctx, result, req.DryRun)
			if err != nil {
				return err
			}

			return writeResult(ctx, cmd, e.log, linkView{res})
		},
	}
}

// linkView renders a link result as run and outcome tables
type linkView struct {
	*runner.LinkResult
}

func (v linkView) Tables() []serializer.Table {
	return []serializer.Table{
		serializer.RunTable(v.Run),
		serializer.LinkTable(v.Links),
	}
}
