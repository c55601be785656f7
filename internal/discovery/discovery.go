package discovery

import (
	"context"
	"fmt"

	"cdr.dev/slog/v3"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// Client lists subscriptions and the workspaces inside them
type Client interface {
	ListSubscriptions(ctx context.Context) ([]types.Subscription, error)
	ListWorkspaces(ctx context.Context, subscriptionID string) ([]types.Workspace, error)
}

// Discoverer enumerates workspaces across subscriptions
type Discoverer struct {
	client          Client
	log             slog.Logger
	subscriptionIDs []string
}

// NewDiscoverer creates a discoverer. An empty allow-list means every
// subscription the credential can access.
func NewDiscoverer(client Client, log slog.Logger, subscriptionIDs []string) *Discoverer {
	return &Discoverer{
		client:          client,
		log:             log.Named("discovery"),
		subscriptionIDs: subscriptionIDs,
	}
}

// Discover returns the workspaces in the filter's region that carry the
// filter's tag. The region is required. An empty result is not an error.
func (d *Discoverer) Discover(ctx context.Context, f Filter) ([]types.Workspace, error) {
	if err := f.Validate(true); err != nil {
		return nil, err
	}
	return d.discover(ctx, f)
}

// All is Discover with an optional region; an empty region matches every
// region.
func (d *Discoverer) All(ctx context.Context, f Filter) ([]types.Workspace, error) {
	if err := f.Validate(false); err != nil {
		return nil, err
	}
	return d.discover(ctx, f)
}

func (d *Discoverer) discover(ctx context.Context, f Filter) ([]types.Workspace, error) {
	subs, err := d.subscriptions(ctx)
	if err != nil {
		return nil, err
	}

	var matched []types.Workspace
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		workspaces, err := d.client.ListWorkspaces(ctx, sub)
		if err != nil {
			subscriptionsSkipped.Inc()
			d.log.Warn(ctx, "skipping subscription",
				slog.F("subscription_id", sub),
				slog.Error(lerrors.Wrap(lerrors.ErrCodeSubscriptionEnumeration, "list workspaces", err)))
			continue
		}
		subscriptionsScanned.Inc()

		n := 0
		for _, ws := range workspaces {
			if ws.SubscriptionID == "" {
				ws.SubscriptionID = sub
			}
			if f.Matches(ws) {
				matched = append(matched, ws)
				n++
			}
		}
		d.log.Debug(ctx, "scanned subscription",
			slog.F("subscription_id", sub),
			slog.F("workspaces", len(workspaces)),
			slog.F("matched", n))
	}

	workspacesMatched.Add(float64(len(matched)))
	d.log.Info(ctx, "discovery complete",
		slog.F("subscriptions", len(subs)),
		slog.F("matched", len(matched)),
		slog.F("region", f.Region),
		slog.F("tag_key", f.TagKey))

	return matched, nil
}

// subscriptions returns the allow-list or every accessible subscription
func (d *Discoverer) subscriptions(ctx context.Context) ([]string, error) {
	if len(d.subscriptionIDs) > 0 {
		return d.subscriptionIDs, nil
	}

	subs, err := d.client.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate subscriptions: %w", err)
	}

	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	return ids, nil
}
