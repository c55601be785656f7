package azure

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/monitor/query/azlogs"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/operationalinsights/armoperationalinsights/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when a requested resource does not exist
var ErrNotFound = errors.New("resource not found")

// Config holds Azure client configuration
type Config struct {
	ARMEndpoint       string
	QueryEndpoint     string
	RequestsPerSecond float64
	Burst             int
	// MaxRetries of zero uses the pipeline default; -1 disables retries.
	MaxRetries int32
	Transport  policy.Transporter
}

// DefaultConfig returns configuration for the public Azure cloud
func DefaultConfig() *Config {
	return &Config{
		ARMEndpoint:       "https://management.azure.com",
		QueryEndpoint:     "https://api.loganalytics.io",
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// Client talks to Azure Resource Manager and the Log Analytics query API
// with a single shared credential. Operational Insights clients are bound
// to a subscription and are created on first use.
type Client struct {
	cred          azcore.TokenCredential
	armOptions    *arm.ClientOptions
	subscriptions *armsubscriptions.Client
	logs          *azlogs.Client

	mu    sync.Mutex
	bySub map[string]*insightsClients
}

type insightsClients struct {
	workspaces     *armoperationalinsights.WorkspacesClient
	tables         *armoperationalinsights.TablesClient
	clusters       *armoperationalinsights.ClustersClient
	linkedServices *armoperationalinsights.LinkedServicesClient
}

// NewClient creates a client. Every request passes through one shared rate
// limiter. The caller's config is not modified.
func NewClient(config *Config, cred azcore.TokenCredential) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if cred == nil {
		return nil, fmt.Errorf("azure client requires a credential")
	}

	cfg := *config
	cfg.ARMEndpoint = strings.TrimSuffix(cfg.ARMEndpoint, "/")
	cfg.QueryEndpoint = strings.TrimSuffix(cfg.QueryEndpoint, "/")

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	base := policy.ClientOptions{
		Cloud: cloud.Configuration{
			Services: map[cloud.ServiceName]cloud.ServiceConfiguration{
				cloud.ResourceManager: {Endpoint: cfg.ARMEndpoint, Audience: cfg.ARMEndpoint},
				azlogs.ServiceName:    {Endpoint: cfg.QueryEndpoint + "/v1", Audience: cfg.QueryEndpoint},
			},
		},
		Retry:           policy.RetryOptions{MaxRetries: cfg.MaxRetries},
		PerCallPolicies: []policy.Policy{&rateLimitPolicy{limiter: rate.NewLimiter(limit, burst)}},
	}
	if cfg.Transport != nil {
		base.Transport = cfg.Transport
	}

	armOptions := &arm.ClientOptions{ClientOptions: base}

	subs, err := armsubscriptions.NewClient(cred, armOptions)
	if err != nil {
		return nil, fmt.Errorf("create subscriptions client: %w", err)
	}
	logs, err := azlogs.NewClient(cred, &azlogs.ClientOptions{ClientOptions: base})
	if err != nil {
		return nil, fmt.Errorf("create logs client: %w", err)
	}

	return &Client{
		cred:          cred,
		armOptions:    armOptions,
		subscriptions: subs,
		logs:          logs,
		bySub:         make(map[string]*insightsClients),
	}, nil
}

// insights returns the Operational Insights clients for a subscription
func (c *Client) insights(subscriptionID string) (*insightsClients, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ic, ok := c.bySub[subscriptionID]; ok {
		return ic, nil
	}

	var (
		ic  insightsClients
		err error
	)
	if ic.workspaces, err = armoperationalinsights.NewWorkspacesClient(subscriptionID, c.cred, c.armOptions); err != nil {
		return nil, fmt.Errorf("create workspaces client: %w", err)
	}
	if ic.tables, err = armoperationalinsights.NewTablesClient(subscriptionID, c.cred, c.armOptions); err != nil {
		return nil, fmt.Errorf("create tables client: %w", err)
	}
	if ic.clusters, err = armoperationalinsights.NewClustersClient(subscriptionID, c.cred, c.armOptions); err != nil {
		return nil, fmt.Errorf("create clusters client: %w", err)
	}
	if ic.linkedServices, err = armoperationalinsights.NewLinkedServicesClient(subscriptionID, c.cred, c.armOptions); err != nil {
		return nil, fmt.Errorf("create linked services client: %w", err)
	}

	c.bySub[subscriptionID] = &ic
	return &ic, nil
}

// rateLimitPolicy holds each request until the limiter admits it
type rateLimitPolicy struct {
	limiter *rate.Limiter
}

func (p *rateLimitPolicy) Do(req *policy.Request) (*http.Response, error) {
	if err := p.limiter.Wait(req.Raw().Context()); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}
	return req.Next()
}

// IsNotFound reports whether err is a 404 from the service or ErrNotFound
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
