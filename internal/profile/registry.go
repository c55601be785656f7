package profile

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/tsanders-rh/lactl/internal/discovery"
)

var (
	// ErrNotFound is returned for a profile name no definition declares
	ErrNotFound = errors.New("profile not found")
	// ErrDisabled is returned for a profile whose definition sets enabled: false
	ErrDisabled = errors.New("profile disabled")
)

// Registry serves loaded profiles. Reload swaps in a complete new set, so
// readers never observe a partially loaded directory.
type Registry struct {
	loader   *Loader
	profiles atomic.Pointer[profileSet]
}

// profileSet is an immutable snapshot sorted by name
type profileSet struct {
	byName map[string]*Profile
	sorted []*Profile
}

func newProfileSet(profiles []*Profile) *profileSet {
	set := &profileSet{byName: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		set.byName[p.Name] = p
		set.sorted = append(set.sorted, p)
	}
	slices.SortFunc(set.sorted, func(a, b *Profile) int { return strings.Compare(a.Name, b.Name) })
	return set
}

// NewRegistry loads every definition the loader can see
func NewRegistry(loader *Loader) (*Registry, error) {
	r := &Registry{loader: loader}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the definitions directory. On error the previous set
// stays active.
func (r *Registry) Reload() error {
	profiles, err := r.loader.LoadAll()
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	r.profiles.Store(newProfileSet(profiles))
	return nil
}

// Get returns the enabled profile called name
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles.Load().byName[name]
	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	case !p.Enabled:
		return nil, fmt.Errorf("%w: %s", ErrDisabled, name)
	}
	return p, nil
}

// List returns the enabled profiles by name
func (r *Registry) List() []*Profile {
	return r.filter(func(*Profile) bool { return true })
}

// ListByRegion returns the enabled profiles whose cluster lives in region,
// compared after normalization
func (r *Registry) ListByRegion(region string) []*Profile {
	want := discovery.NormalizeRegion(region)
	return r.filter(func(p *Profile) bool {
		return discovery.NormalizeRegion(p.Cluster.Region) == want
	})
}

func (r *Registry) filter(keep func(*Profile) bool) []*Profile {
	var out []*Profile
	for _, p := range r.profiles.Load().sorted {
		if p.Enabled && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Count returns how many definitions are loaded, disabled ones included
func (r *Registry) Count() int {
	return len(r.profiles.Load().sorted)
}

// CountEnabled returns how many loaded profiles are enabled
func (r *Registry) CountEnabled() int {
	return len(r.List())
}
