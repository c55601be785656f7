package api

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tsanders-rh/lactl/internal/policy"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// ClusterHandler handles cluster-related API endpoints
type ClusterHandler struct {
	history History
	policy  *policy.Engine
}

// NewClusterHandler creates a new cluster handler
func NewClusterHandler(history History, policyEngine *policy.Engine) *ClusterHandler {
	return &ClusterHandler{
		history: history,
		policy:  policyEngine,
	}
}

// PlanResponse is a validated provisioning request ready to execute
type PlanResponse struct {
	Profile      string            `json:"profile"`
	Spec         types.ClusterSpec `json:"spec"`
	MergedTags   map[string]string `json:"merged_tags"`
	Region       string            `json:"region"`
	TagKey       string            `json:"tag_key,omitempty"`
	TagValue     string            `json:"tag_value,omitempty"`
	PollInterval string            `json:"poll_interval"`
	MaxWait      string            `json:"max_wait"`
	ARMTemplate  json.RawMessage   `json:"arm_template"`
}

// List handles GET /api/v1/clusters
func (h *ClusterHandler) List(c echo.Context) error {
	clusters, err := h.history.ListClusters(c.Request().Context())
	if err != nil {
		return ErrorInternal(c, "Failed to list clusters: "+err.Error())
	}
	if clusters == nil {
		clusters = []*types.Cluster{}
	}
	return SuccessOK(c, clusters)
}

// Get handles GET /api/v1/clusters/*, where the wildcard is the ARM
// resource ID without its leading slash
func (h *ClusterHandler) Get(c echo.Context) error {
	raw, err := url.PathUnescape(c.Param("*"))
	if err != nil {
		return ErrorBadRequest(c, "Invalid cluster ID")
	}
	id := "/" + strings.TrimPrefix(raw, "/")

	cluster, err := h.history.GetCluster(c.Request().Context(), id)
	if err != nil {
		return ErrorFromStore(c, "Cluster", err)
	}
	return SuccessOK(c, cluster)
}

// Plan handles POST /api/v1/clusters/plan. It validates a provisioning
// request and renders the deployment without contacting Azure.
func (h *ClusterHandler) Plan(c echo.Context) error {
	var req types.ProvisionRequest
	if err := c.Bind(&req); err != nil {
		return ErrorBadRequest(c, "Invalid request body: "+err.Error())
	}

	result, err := h.policy.ValidateProvisionRequest(&req)
	if err != nil {
		return ErrorInternal(c, "Failed to validate request: "+err.Error())
	}
	if !result.Valid {
		return ErrorValidation(c, result)
	}

	template, err := h.policy.Renderer().RenderARMTemplate(result.Spec)
	if err != nil {
		return ErrorInternal(c, "Failed to render template: "+err.Error())
	}

	resp := &PlanResponse{
		Spec:         result.Spec,
		MergedTags:   result.MergedTags,
		Region:       result.Filter.Region,
		TagKey:       result.Filter.TagKey,
		TagValue:     result.Filter.TagValue,
		PollInterval: result.Provision.PollInterval.String(),
		MaxWait:      result.Provision.MaxWait.Round(time.Second).String(),
		ARMTemplate:  template,
	}
	if result.Profile != nil {
		resp.Profile = result.Profile.Name
	}

	return SuccessOK(c, resp)
}
