package cli

import (
	"context"
	"fmt"

	"cdr.dev/slog/v3"
	"github.com/urfave/cli/v3"

	"github.com/tsanders-rh/lactl/internal/auth"
	"github.com/tsanders-rh/lactl/internal/azure"
	"github.com/tsanders-rh/lactl/internal/discovery"
	"github.com/tsanders-rh/lactl/internal/link"
	"github.com/tsanders-rh/lactl/internal/profile"
	"github.com/tsanders-rh/lactl/internal/provision"
	"github.com/tsanders-rh/lactl/internal/runner"
	"github.com/tsanders-rh/lactl/internal/store"
	"github.com/tsanders-rh/lactl/internal/usage"
)

// Cloud is the Azure surface used by analyze, provision and link
type Cloud interface {
	discovery.Client
	usage.QueryClient
	usage.TableLister
	provision.ClusterClient
	link.Linker
}

// Connector authenticates and returns a cloud client together with the
// principal it acts as
type Connector func(ctx context.Context, tenantID string, log slog.Logger) (Cloud, string, error)

// ConnectAzure authenticates with the default Azure credential chain. The
// token is acquired once up front so credential problems fail before any
// resource is touched.
func ConnectAzure(ctx context.Context, tenantID string, log slog.Logger) (Cloud, string, error) {
	cred, err := auth.NewDefaultCredential(tenantID)
	if err != nil {
		return nil, "", err
	}

	session, err := auth.Authenticate(ctx, cred, tenantID)
	if err != nil {
		return nil, "", err
	}

	client, err := azure.NewClient(azure.DefaultConfig(), session.Credential)
	if err != nil {
		return nil, "", fmt.Errorf("create azure client: %w", err)
	}

	actor := "unknown"
	if session.Claims != nil {
		actor = session.Claims.Principal()
	}
	log.Info(ctx, "authenticated",
		slog.F("principal", actor),
		slog.F("expires_on", session.ExpiresOn))

	return client, actor, nil
}

// env holds what every command shares: logger, profiles and run history
type env struct {
	log      slog.Logger
	cmd      *cli.Command
	registry *profile.Registry
	store    *store.Store
}

func newEnv(ctx context.Context, cmd *cli.Command) (*env, error) {
	log, err := newLogger(cmd.Root().ErrWriter, cmd.String("log-level"))
	if err != nil {
		return nil, err
	}

	e := &env{log: log, cmd: cmd}

	if url := cmd.String("database-url"); url != "" {
		st, err := store.NewStore(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		e.store = st
	}

	return e, nil
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// profiles loads the profile registry on first use
func (e *env) profiles() (*profile.Registry, error) {
	if e.registry != nil {
		return e.registry, nil
	}

	registry, err := profile.NewRegistry(profile.NewLoader(e.cmd.String("profiles-dir")))
	if err != nil {
		return nil, err
	}
	e.log.Debug(context.Background(), "loaded profiles",
		slog.F("count", registry.Count()),
		slog.F("enabled", registry.CountEnabled()))

	e.registry = registry
	return registry, nil
}

// renderer returns a renderer backed by the registry when a profile is
// requested, and without profiles otherwise
func (e *env) renderer(profileName string) (*profile.Renderer, error) {
	if profileName == "" {
		return profile.NewRenderer(nil), nil
	}
	registry, err := e.profiles()
	if err != nil {
		return nil, err
	}
	return profile.NewRenderer(registry), nil
}

// runner connects to Azure and assembles a runner recording to the store,
// if one is configured
func (e *env) runner(ctx context.Context, connect Connector, subscriptionsFile string) (*runner.Runner, error) {
	var allowList []string
	if subscriptionsFile != "" {
		ids, err := discovery.LoadSubscriptionAllowList(subscriptionsFile)
		if err != nil {
			return nil, err
		}
		allowList = ids
	}

	cloud, actor, err := connect(ctx, e.cmd.String("tenant"), e.log)
	if err != nil {
		return nil, err
	}

	var recorder runner.Recorder = runner.NopRecorder{}
	if e.store != nil {
		recorder = runner.NewStoreRecorder(e.store, actor, nil)
	}

	return runner.New(runner.Deps{
		Discoverer: discovery.NewDiscoverer(cloud, e.log, allowList),
		Classifier: usage.NewClassifier(cloud, cloud, e.log),
		Clusters:   cloud,
		Linker:     cloud,
		Recorder:   recorder,
		Log:        e.log,
	}), nil
}
