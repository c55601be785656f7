package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/tsanders-rh/lactl/internal/provision"
	"github.com/tsanders-rh/lactl/internal/tier"
)

// clusterNamePattern matches 4-63 alphanumerics and hyphens, not starting
// or ending with a hyphen
var clusterNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{2,61}[A-Za-z0-9]$`)

// ValidClusterName reports whether name is an acceptable cluster name
func ValidClusterName(name string) bool {
	return clusterNamePattern.MatchString(name)
}

// definitionExts are the file extensions read as profile definitions
var definitionExts = []string{".yaml", ".yml"}

// Loader reads profile definitions, one per file named after the profile
type Loader struct {
	profilesDir string
	validate    *validator.Validate
}

// NewLoader returns a loader for definitions in profilesDir
func NewLoader(profilesDir string) *Loader {
	v := validator.New()
	_ = v.RegisterValidation("clustername", func(fl validator.FieldLevel) bool {
		return ValidClusterName(fl.Field().String())
	})

	return &Loader{profilesDir: profilesDir, validate: v}
}

// Load reads the definition for the named profile
func (l *Loader) Load(name string) (*Profile, error) {
	for _, ext := range definitionExts {
		path := filepath.Join(l.profilesDir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return l.parseNamed(name, data)
	}
	return nil, fmt.Errorf("%w: no definition for %s in %s", ErrNotFound, name, l.profilesDir)
}

// LoadAll reads every definition in the directory. A directory with no
// definitions is an error, as is any bad file; every bad file is reported.
func (l *Loader) LoadAll() ([]*Profile, error) {
	entries, err := os.ReadDir(l.profilesDir)
	if err != nil {
		return nil, fmt.Errorf("read profiles directory: %w", err)
	}

	var (
		profiles []*Profile
		errs     *multierror.Error
	)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !slices.Contains(definitionExts, ext) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ext)
		data, err := os.ReadFile(filepath.Join(l.profilesDir, entry.Name()))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("read %s: %w", entry.Name(), err))
			continue
		}
		p, err := l.parseNamed(name, data)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		profiles = append(profiles, p)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profile definitions in %s", l.profilesDir)
	}
	return profiles, nil
}

func (l *Loader) parseNamed(name string, data []byte) (*Profile, error) {
	p, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	if p.Name != name {
		return nil, fmt.Errorf("profile %s: name %q does not match its file", name, p.Name)
	}
	return p, nil
}

// Parse decodes and validates one definition. Unknown keys are rejected so
// a misspelt field cannot silently fall back to a default.
func (l *Loader) Parse(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse profile YAML: %w", err)
	}

	if err := l.Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks struct tags and the cross-field rules, reporting every
// violation found
func (l *Loader) Validate(p *Profile) error {
	if err := l.validate.Struct(p); err != nil {
		// Cross-field rules assume a structurally valid profile
		return fmt.Errorf("invalid profile: %w", err)
	}

	var errs *multierror.Error

	recommender, err := tier.FromPricing(p.Pricing)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("pricing: %w", err))
	} else if _, ok := recommender.Catalog().Lookup(p.Cluster.CapacityGBPerDay); !ok {
		errs = multierror.Append(errs, fmt.Errorf("capacity %d GB/day is not a commitment tier: %v",
			p.Cluster.CapacityGBPerDay, recommender.Catalog().Capacities()))
	}

	if prov := p.Provisioning; prov.PollInterval > 0 && prov.MaxWait > 0 && prov.MaxWait < prov.PollInterval {
		errs = multierror.Append(errs, fmt.Errorf("provisioning maxWait (%s) must be >= pollInterval (%s)",
			prov.MaxWait, prov.PollInterval))
	}

	if p.Provisioning.MaxWait >= provision.MaxWaitLimit {
		errs = multierror.Append(errs, fmt.Errorf("provisioning maxWait (%s) must be shorter than %s",
			p.Provisioning.MaxWait, provision.MaxWaitLimit))
	}

	for _, tags := range []struct {
		kind string
		m    map[string]string
	}{{"required", p.Tags.Required}, {"default", p.Tags.Defaults}} {
		for _, k := range slices.Sorted(maps.Keys(tags.m)) {
			if IsReservedTagKey(k) {
				errs = multierror.Append(errs, fmt.Errorf("%s tag %s uses a reserved key", tags.kind, k))
			}
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return nil
}

// Recommender returns a tier recommender honouring the profile's pricing
func (p *Profile) Recommender() (*tier.Recommender, error) {
	return tier.FromPricing(p.Pricing)
}
