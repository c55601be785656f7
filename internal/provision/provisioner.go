package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/tsanders-rh/lactl/internal/azure"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// ClusterClient reads and creates dedicated clusters
type ClusterClient interface {
	// GetCluster returns an error matching azure.ErrNotFound when the
	// cluster does not exist.
	GetCluster(ctx context.Context, ref types.ClusterRef) (*types.Cluster, error)
	CreateCluster(ctx context.Context, spec types.ClusterSpec) (*types.Cluster, error)
}

// MaxWaitLimit is the exclusive upper bound on MaxWait. A run still open
// after this long is treated as abandoned by run history maintenance.
const MaxWaitLimit = 6 * time.Hour

// Config holds provisioning configuration
type Config struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

// DefaultConfig returns default provisioning configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval: 5 * time.Minute,
		MaxWait:      150 * time.Minute,
	}
}

// Provisioner creates or adopts a dedicated cluster and waits until it
// reaches a terminal provisioning state
type Provisioner struct {
	config *Config
	client ClusterClient
	clock  quartz.Clock
	log    slog.Logger
}

// NewProvisioner creates a provisioner
func NewProvisioner(config *Config, client ClusterClient, clock quartz.Clock, log slog.Logger) *Provisioner {
	if config == nil {
		config = DefaultConfig()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}

	return &Provisioner{
		config: config,
		client: client,
		clock:  clock,
		log:    log.Named("provision"),
	}
}

// EnsureCluster returns the cluster once it has provisioned successfully.
// An absent cluster is created with a single request; an existing one is
// adopted as is. Provisioning failure and exceeding MaxWait are fatal.
// A timed-out cluster is left in place.
func (p *Provisioner) EnsureCluster(ctx context.Context, spec types.ClusterSpec) (*types.Cluster, error) {
	start := p.clock.Now()
	log := p.log.With(slog.F("cluster", spec.ClusterRef.String()), slog.F("subscription_id", spec.SubscriptionID))

	cluster, err := p.createOrAdopt(ctx, log, spec)
	if err != nil {
		provisionOutcomes.WithLabelValues("error").Inc()
		return nil, err
	}

	cluster, err = p.wait(ctx, log, spec.ClusterRef, cluster, start)
	if err != nil {
		provisionOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	provisionOutcomes.WithLabelValues("succeeded").Inc()
	provisionDuration.Observe(p.clock.Since(start).Seconds())
	log.Info(ctx, "cluster provisioned",
		slog.F("cluster_id", cluster.ID),
		slog.F("adopted", cluster.Adopted),
		slog.F("elapsed", p.clock.Since(start)))

	return cluster, nil
}

// createOrAdopt moves the cluster out of Absent
func (p *Provisioner) createOrAdopt(ctx context.Context, log slog.Logger, spec types.ClusterSpec) (*types.Cluster, error) {
	existing, err := p.client.GetCluster(ctx, spec.ClusterRef)
	if err == nil {
		existing.Adopted = true
		log.Info(ctx, "adopting existing cluster",
			slog.F("cluster_id", existing.ID),
			slog.F("state", existing.ProvisioningState),
			slog.F("capacity_gb_per_day", existing.CapacityGBPerDay))
		if existing.CapacityGBPerDay != 0 && existing.CapacityGBPerDay != spec.CapacityGBPerDay {
			log.Warn(ctx, "existing cluster capacity differs from requested capacity",
				slog.F("existing", existing.CapacityGBPerDay),
				slog.F("requested", spec.CapacityGBPerDay))
		}
		return existing, nil
	}
	if !errors.Is(err, azure.ErrNotFound) && !azure.IsNotFound(err) {
		return nil, fmt.Errorf("look up cluster %s: %w", spec.ClusterRef, err)
	}

	log.Info(ctx, "cluster not found, creating",
		slog.F("region", spec.Region),
		slog.F("capacity_gb_per_day", spec.CapacityGBPerDay))

	created, err := p.client.CreateCluster(ctx, spec)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.ErrCodeProvisioningFailed,
			fmt.Sprintf("create cluster %s", spec.ClusterRef), err)
	}
	clustersCreated.Inc()

	return created, nil
}

// wait polls until the cluster reaches a terminal state or the budget runs
// out. Poll errors are logged and retried on the next interval. The last
// sleep is cut short so the final poll lands on the deadline.
func (p *Provisioner) wait(ctx context.Context, log slog.Logger, ref types.ClusterRef, cluster *types.Cluster, start time.Time) (*types.Cluster, error) {
	if done, err := p.terminal(cluster); done {
		return cluster, err
	}

	deadline := start.Add(p.config.MaxWait)
	for {
		current, err := p.client.GetCluster(ctx, ref)
		pollsTotal.Inc()
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			pollErrors.Inc()
			log.Warn(ctx, "poll failed, retrying next interval", slog.Error(err))
		default:
			current.Adopted = cluster.Adopted
			cluster = current
			log.Debug(ctx, "polled cluster", slog.F("state", cluster.ProvisioningState))
			if done, err := p.terminal(cluster); done {
				return cluster, err
			}
		}

		remaining := deadline.Sub(p.clock.Now())
		if remaining <= 0 {
			return nil, lerrors.NewWithContext(lerrors.ErrCodeProvisioningTimeout,
				fmt.Sprintf("cluster %s did not finish provisioning within %s", ref, p.config.MaxWait),
				map[string]any{"last_state": cluster.ProvisioningState, "elapsed": p.clock.Since(start).String()})
		}

		if err := p.sleep(ctx, min(p.config.PollInterval, remaining)); err != nil {
			return nil, err
		}
	}
}

// terminal reports whether polling is over and the error, if any, it ends with
func (p *Provisioner) terminal(cluster *types.Cluster) (bool, error) {
	switch cluster.ProvisioningState {
	case types.ProvisioningStateSucceeded:
		return true, nil
	case types.ProvisioningStateFailed:
		return true, lerrors.NewWithContext(lerrors.ErrCodeProvisioningFailed,
			fmt.Sprintf("cluster %s provisioning failed", cluster.Name),
			map[string]any{"cluster_id": cluster.ID})
	default:
		return false, nil
	}
}

func (p *Provisioner) sleep(ctx context.Context, d time.Duration) error {
	timer := p.clock.NewTimer(d, "provision", "poll")
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func outcomeLabel(err error) string {
	switch {
	case lerrors.Is(err, lerrors.ErrCodeProvisioningTimeout):
		return "timeout"
	case lerrors.Is(err, lerrors.ErrCodeProvisioningFailed):
		return "failed"
	default:
		return "error"
	}
}
