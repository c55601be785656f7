package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/tsanders-rh/lactl/internal/profile"
	"github.com/tsanders-rh/lactl/internal/serializer"
	"github.com/tsanders-rh/lactl/internal/tier"
)

// recommenderFor builds a recommender from the profile's pricing and an
// optional pay-as-you-go override
func recommenderFor(e *env, profileName string, paygPrice float64) (*tier.Recommender, error) {
	pricing := tier.Pricing{}
	if profileName != "" {
		registry, err := e.profiles()
		if err != nil {
			return nil, err
		}
		prof, err := registry.Get(profileName)
		if err != nil {
			return nil, err
		}
		if prof.Pricing != nil {
			pricing = *prof.Pricing
		}
	}
	if paygPrice < 0 {
		return nil, fmt.Errorf("--payg-price must be positive, got %v", paygPrice)
	}
	if paygPrice > 0 {
		pricing.PayAsYouGoPerGB = paygPrice
	}
	return tier.FromPricing(&pricing)
}

func recommendCmd() *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Recommend a commitment tier for an average daily Analytics volume",
		Description: `Pick the largest commitment tier whose capacity does not exceed the
average daily Analytics ingestion and compare its monthly cost with
pay-as-you-go. Below the 100 GB/day floor pay-as-you-go is recommended.
Works offline.`,
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:     "avg-gb-per-day",
				Usage:    "average daily Analytics ingestion in GB",
				Required: true,
			},
			&cli.FloatFlag{
				Name:  "payg-price",
				Usage: "pay-as-you-go price per GB in USD (default 2.30)",
			},
			profileFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			avg := cmd.Float("avg-gb-per-day")
			if avg < 0 {
				return fmt.Errorf("--avg-gb-per-day must not be negative, got %v", avg)
			}

			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			recommender, err := recommenderFor(e, cmd.String("profile"), cmd.Float("payg-price"))
			if err != nil {
				return err
			}

			return writeResult(ctx, cmd, e.log, recommender.Recommend(avg))
		},
	}
}

func tiersCmd() *cli.Command {
	return &cli.Command{
		Name:  "tiers",
		Usage: "Print the commitment-tier catalog",
		Flags: []cli.Flag{profileFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			recommender, err := recommenderFor(e, cmd.String("profile"), 0)
			if err != nil {
				return err
			}

			return writeResult(ctx, cmd, e.log, recommender.Catalog().Tiers())
		},
	}
}

func profilesCmd() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List enabled cluster profiles",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			registry, err := e.profiles()
			if err != nil {
				return err
			}

			return writeResult(ctx, cmd, e.log, profileList(registry.List()))
		},
	}
}

// profileList renders profiles one per row
type profileList []*profile.Profile

func (l profileList) Tables() []serializer.Table {
	t := serializer.Table{Header: []string{"NAME", "REGION", "CLUSTER", "CAPACITY GB/DAY", "TAG"}}
	for _, p := range l {
		tag := ""
		if p.Discovery.TagKey != "" {
			tag = p.Discovery.TagKey + "=" + p.Discovery.TagValue
		}
		t.Rows = append(t.Rows, []string{
			p.Name, p.Cluster.Region, p.Cluster.Name, strconv.Itoa(p.Cluster.CapacityGBPerDay), tag,
		})
	}
	return []serializer.Table{t}
}
