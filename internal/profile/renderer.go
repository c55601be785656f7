package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"text/template"

	"github.com/tsanders-rh/lactl/internal/discovery"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// Renderer resolves requests against profiles and renders cluster specs
type Renderer struct {
	registry *Registry
}

// NewRenderer creates a new renderer. A nil registry disables profile
// lookups.
func NewRenderer(registry *Registry) *Renderer {
	return &Renderer{
		registry: registry,
	}
}

// Resolve fills empty request fields from the named profile. Explicit
// request fields always win. Without a profile the request is returned
// unchanged.
func (r *Renderer) Resolve(req types.ProvisionRequest) (types.ProvisionRequest, *Profile, error) {
	if req.Profile == "" {
		return req, nil, nil
	}
	if r.registry == nil {
		return req, nil, fmt.Errorf("profile %s requested but no profiles are loaded", req.Profile)
	}

	prof, err := r.registry.Get(req.Profile)
	if err != nil {
		return req, nil, fmt.Errorf("get profile: %w", err)
	}

	req.SubscriptionID = firstNonEmpty(req.SubscriptionID, prof.Cluster.SubscriptionID)
	req.ResourceGroup = firstNonEmpty(req.ResourceGroup, prof.Cluster.ResourceGroup)
	req.Name = firstNonEmpty(req.Name, prof.Cluster.Name)
	req.Region = firstNonEmpty(req.Region, prof.Cluster.Region)
	if req.CapacityGBPerDay == 0 {
		req.CapacityGBPerDay = prof.Cluster.CapacityGBPerDay
	}
	if req.TagKey == "" && req.TagValue == "" {
		req.TagKey = prof.Discovery.TagKey
		req.TagValue = prof.Discovery.TagValue
	}
	if req.PollInterval == 0 {
		req.PollInterval = prof.Provisioning.PollInterval
	}
	if req.MaxWait == 0 {
		req.MaxWait = prof.Provisioning.MaxWait
	}

	return req, prof, nil
}

// ResolveLink fills empty link request fields from the named profile
func (r *Renderer) ResolveLink(req types.LinkRequest) (types.LinkRequest, *Profile, error) {
	if req.Profile == "" {
		return req, nil, nil
	}
	if r.registry == nil {
		return req, nil, fmt.Errorf("profile %s requested but no profiles are loaded", req.Profile)
	}

	prof, err := r.registry.Get(req.Profile)
	if err != nil {
		return req, nil, fmt.Errorf("get profile: %w", err)
	}

	if req.ClusterID == "" {
		ref := types.ClusterRef{
			SubscriptionID: prof.Cluster.SubscriptionID,
			ResourceGroup:  prof.Cluster.ResourceGroup,
			Name:           prof.Cluster.Name,
		}
		req.ClusterID = ref.ResourceID()
	}
	req.Region = firstNonEmpty(req.Region, prof.Cluster.Region)
	if req.TagKey == "" && req.TagValue == "" {
		req.TagKey = prof.Discovery.TagKey
		req.TagValue = prof.Discovery.TagValue
	}

	return req, prof, nil
}

// RenderClusterSpec builds the desired cluster state from a resolved request
func (r *Renderer) RenderClusterSpec(req types.ProvisionRequest, mergedTags map[string]string) types.ClusterSpec {
	tags := make(types.Tags, len(mergedTags))
	for k, v := range mergedTags {
		tags[k] = v
	}

	return types.ClusterSpec{
		ClusterRef: types.ClusterRef{
			SubscriptionID: req.SubscriptionID,
			ResourceGroup:  req.ResourceGroup,
			Name:           req.Name,
		},
		Region:           discovery.NormalizeRegion(req.Region),
		CapacityGBPerDay: req.CapacityGBPerDay,
		Tags:             tags,
	}
}

// templateTag is a tag rendered in stable key order
type templateTag struct {
	Key   string
	Value string
}

// ARMTemplateData holds data for rendering a cluster deployment template
type ARMTemplateData struct {
	Name             string
	Region           string
	CapacityGBPerDay int
	Tags             []templateTag
}

// RenderARMTemplate renders an ARM deployment template that creates the
// cluster. It is printed by dry runs and can be deployed by hand.
func (r *Renderer) RenderARMTemplate(spec types.ClusterSpec) ([]byte, error) {
	data := ARMTemplateData{
		Name:             spec.Name,
		Region:           spec.Region,
		CapacityGBPerDay: spec.CapacityGBPerDay,
	}

	keys := make([]string, 0, len(spec.Tags))
	for k := range spec.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.Tags = append(data.Tags, templateTag{Key: k, Value: spec.Tags[k]})
	}

	tmpl, err := template.New("arm-cluster").Funcs(template.FuncMap{"json": jsonString}).Parse(armClusterTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	// Parse JSON to validate
	var deployment map[string]any
	if err := json.Unmarshal(buf.Bytes(), &deployment); err != nil {
		return nil, fmt.Errorf("validate generated template: %w", err)
	}

	return buf.Bytes(), nil
}

// jsonString quotes s as a JSON string literal
func jsonString(s string) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// armClusterTemplate is the deployment template for a dedicated cluster
const armClusterTemplate = `{
  "$schema": "https://schema.management.azure.com/schemas/2019-04-01/deploymentTemplate.json#",
  "contentVersion": "1.0.0.0",
  "resources": [
    {
      "type": "Microsoft.OperationalInsights/clusters",
      "apiVersion": "2022-10-01",
      "name": {{json .Name}},
      "location": {{json .Region}},
      "identity": {
        "type": "SystemAssigned"
      },
      "sku": {
        "name": "CapacityReservation",
        "capacity": {{.CapacityGBPerDay}}
      },
      "tags": {
{{- range $i, $t := .Tags}}{{if $i}},{{end}}
        {{json $t.Key}}: {{json $t.Value}}
{{- end}}
      },
      "properties": {}
    }
  ]
}
`
