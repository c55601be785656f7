package provision_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cdr.dev/slog/v3/sloggers/slogtest"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsanders-rh/lactl/internal/azure"
	"github.com/tsanders-rh/lactl/internal/provision"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

type getResult struct {
	state types.ProvisioningState
	err   error
}

var notFound = getResult{err: fmt.Errorf("get cluster: %w", azure.ErrNotFound)}

func state(s types.ProvisioningState) getResult {
	return getResult{state: s}
}

// fakeClusters replays a script of lookup results; the last entry repeats
type fakeClusters struct {
	mu        sync.Mutex
	script    []getResult
	gets      int
	creates   int
	createErr error
}

func (f *fakeClusters) GetCluster(_ context.Context, ref types.ClusterRef) (*types.Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r := f.script[min(f.gets, len(f.script)-1)]
	f.gets++
	if r.err != nil {
		return nil, r.err
	}
	return &types.Cluster{ID: ref.ResourceID(), Name: ref.Name, ProvisioningState: r.state, CapacityGBPerDay: 100}, nil
}

func (f *fakeClusters) CreateCluster(_ context.Context, spec types.ClusterSpec) (*types.Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &types.Cluster{ID: spec.ResourceID(), Name: spec.Name, ProvisioningState: types.ProvisioningStateCreating}, nil
}

func (f *fakeClusters) counts() (gets, creates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, f.creates
}

var spec = types.ClusterSpec{
	ClusterRef:       types.ClusterRef{SubscriptionID: "sub-1", ResourceGroup: "rg-logs", Name: "la-cluster"},
	Region:           "eastus",
	CapacityGBPerDay: 100,
}

type result struct {
	cluster *types.Cluster
	err     error
}

func setup(t *testing.T, client *fakeClusters, config *provision.Config) (*provision.Provisioner, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	log := slogtest.Make(t, &slogtest.Options{IgnoreErrors: true})
	return provision.NewProvisioner(config, client, clock, log), clock
}

func testConfig() *provision.Config {
	return &provision.Config{PollInterval: 5 * time.Minute, MaxWait: 150 * time.Minute}
}

func start(ctx context.Context, p *provision.Provisioner) <-chan result {
	ch := make(chan result, 1)
	go func() {
		c, err := p.EnsureCluster(ctx, spec)
		ch <- result{cluster: c, err: err}
	}()
	return ch
}

// advancePolls releases n poll timers and fires each one
func advancePolls(ctx context.Context, t *testing.T, clock *quartz.Mock, trap *quartz.Trap, n int, interval time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		call := trap.MustWait(ctx)
		assert.Equal(t, interval, call.Duration)
		call.MustRelease(ctx)
		clock.Advance(call.Duration).MustWait(ctx)
	}
}

func await(ctx context.Context, t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		t.Fatal("timed out waiting for EnsureCluster")
		return result{}
	}
}

func TestEnsureCluster_CreatesAndPollsUntilSucceeded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := &fakeClusters{script: []getResult{
		notFound,
		state(types.ProvisioningStateCreating),
		state(types.ProvisioningStateCreating),
		state(types.ProvisioningStateSucceeded),
	}}
	p, clock := setup(t, client, testConfig())

	trap := clock.Trap().NewTimer("provision", "poll")
	defer trap.Close()

	ch := start(ctx, p)
	advancePolls(ctx, t, clock, trap, 2, 5*time.Minute)
	r := await(ctx, t, ch)

	require.NoError(t, r.err)
	assert.Equal(t, types.ProvisioningStateSucceeded, r.cluster.ProvisioningState)
	assert.False(t, r.cluster.Adopted)

	gets, creates := client.counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 4, gets, "one lookup and three polls")
}

func TestEnsureCluster_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := &fakeClusters{script: []getResult{
		notFound,
		state(types.ProvisioningStateCreating),
	}}
	p, clock := setup(t, client, &provision.Config{PollInterval: 5 * time.Minute, MaxWait: 15 * time.Minute})

	trap := clock.Trap().NewTimer("provision", "poll")
	defer trap.Close()

	ch := start(ctx, p)
	advancePolls(ctx, t, clock, trap, 3, 5*time.Minute)
	r := await(ctx, t, ch)

	require.Error(t, r.err)
	assert.Nil(t, r.cluster)
	assert.Equal(t, lerrors.ErrCodeProvisioningTimeout, lerrors.CodeOf(r.err))
	assert.True(t, lerrors.IsFatal(r.err))

	gets, creates := client.counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 5, gets, "one lookup and polls at 0, 5, 10 and 15 minutes")
}

func TestEnsureCluster_TimeoutHonorsMaxWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := &fakeClusters{script: []getResult{
		notFound,
		state(types.ProvisioningStateCreating),
	}}
	p, clock := setup(t, client, &provision.Config{PollInterval: 5 * time.Minute, MaxWait: 12 * time.Minute})
	began := clock.Now()

	trap := clock.Trap().NewTimer("provision", "poll")
	defer trap.Close()

	ch := start(ctx, p)
	advancePolls(ctx, t, clock, trap, 2, 5*time.Minute)

	// The last sleep only covers what is left of the budget.
	last := trap.MustWait(ctx)
	assert.Equal(t, 2*time.Minute, last.Duration)
	last.MustRelease(ctx)
	clock.Advance(last.Duration).MustWait(ctx)

	r := await(ctx, t, ch)
	require.Error(t, r.err)
	assert.Equal(t, lerrors.ErrCodeProvisioningTimeout, lerrors.CodeOf(r.err))
	assert.Contains(t, r.err.Error(), "within 12m0s")
	assert.Equal(t, 12*time.Minute, clock.Since(began))

	gets, _ := client.counts()
	assert.Equal(t, 5, gets, "one lookup and polls at 0, 5, 10 and 12 minutes")
}

func TestEnsureCluster_AdoptsExisting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("succeeded cluster is returned without create or poll", func(t *testing.T) {
		client := &fakeClusters{script: []getResult{state(types.ProvisioningStateSucceeded)}}
		p, _ := setup(t, client, testConfig())

		cluster, err := p.EnsureCluster(ctx, spec)
		require.NoError(t, err)
		assert.True(t, cluster.Adopted)

		gets, creates := client.counts()
		assert.Equal(t, 0, creates)
		assert.Equal(t, 1, gets)
	})

	t.Run("creating cluster is polled without create", func(t *testing.T) {
		client := &fakeClusters{script: []getResult{
			state(types.ProvisioningStateCreating),
			state(types.ProvisioningStateUnknown),
			state(types.ProvisioningStateSucceeded),
		}}
		p, clock := setup(t, client, testConfig())

		trap := clock.Trap().NewTimer("provision", "poll")
		defer trap.Close()

		ch := start(ctx, p)
		advancePolls(ctx, t, clock, trap, 1, 5*time.Minute)
		r := await(ctx, t, ch)

		require.NoError(t, r.err)
		assert.True(t, r.cluster.Adopted)
		_, creates := client.counts()
		assert.Equal(t, 0, creates)
	})

	t.Run("failed cluster is fatal", func(t *testing.T) {
		client := &fakeClusters{script: []getResult{state(types.ProvisioningStateFailed)}}
		p, _ := setup(t, client, testConfig())

		_, err := p.EnsureCluster(ctx, spec)
		require.Error(t, err)
		assert.Equal(t, lerrors.ErrCodeProvisioningFailed, lerrors.CodeOf(err))
	})
}

func TestEnsureCluster_PollingFailsTerminally(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := &fakeClusters{script: []getResult{
		notFound,
		state(types.ProvisioningStateCreating),
		state(types.ProvisioningStateFailed),
	}}
	p, clock := setup(t, client, testConfig())

	trap := clock.Trap().NewTimer("provision", "poll")
	defer trap.Close()

	ch := start(ctx, p)
	advancePolls(ctx, t, clock, trap, 1, 5*time.Minute)
	r := await(ctx, t, ch)

	require.Error(t, r.err)
	assert.Equal(t, lerrors.ErrCodeProvisioningFailed, lerrors.CodeOf(r.err))
}

func TestEnsureCluster_TransientPollErrorKeepsPolling(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := &fakeClusters{script: []getResult{
		notFound,
		{err: errors.New("503 service unavailable")},
		state(types.ProvisioningStateSucceeded),
	}}
	p, clock := setup(t, client, testConfig())

	trap := clock.Trap().NewTimer("provision", "poll")
	defer trap.Close()

	ch := start(ctx, p)
	advancePolls(ctx, t, clock, trap, 1, 5*time.Minute)
	r := await(ctx, t, ch)

	require.NoError(t, r.err)
	assert.Equal(t, types.ProvisioningStateSucceeded, r.cluster.ProvisioningState)
	gets, creates := client.counts()
	assert.Equal(t, 3, gets)
	assert.Equal(t, 1, creates)
}

func TestEnsureCluster_CreateAndLookupErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("create failure is fatal", func(t *testing.T) {
		client := &fakeClusters{script: []getResult{notFound}, createErr: errors.New("quota exceeded")}
		p, _ := setup(t, client, testConfig())

		_, err := p.EnsureCluster(ctx, spec)
		require.Error(t, err)
		assert.Equal(t, lerrors.ErrCodeProvisioningFailed, lerrors.CodeOf(err))
		_, creates := client.counts()
		assert.Equal(t, 1, creates)
	})

	t.Run("lookup failure does not create", func(t *testing.T) {
		client := &fakeClusters{script: []getResult{{err: errors.New("forbidden")}}}
		p, _ := setup(t, client, testConfig())

		_, err := p.EnsureCluster(ctx, spec)
		require.Error(t, err)
		_, creates := client.counts()
		assert.Equal(t, 0, creates)
	})
}

func TestEnsureCluster_ContextCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := &fakeClusters{script: []getResult{notFound, state(types.ProvisioningStateCreating)}}
	p, clock := setup(t, client, testConfig())

	trap := clock.Trap().NewTimer("provision", "poll")
	defer trap.Close()

	runCtx, stop := context.WithCancel(ctx)
	ch := start(runCtx, p)

	trap.MustWait(ctx).MustRelease(ctx)
	stop()
	r := await(ctx, t, ch)

	assert.ErrorIs(t, r.err, context.Canceled)
}
