package engine

import (
	"context"
	"sort"

	"github.com/google/uuid"
	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/store/model"
	"github.com/wireline-net/wireline/internal/transport"
)

// Target is a resolved dispatch target: one device the job will touch.
type Target struct {
	ID       uuid.UUID
	Hostname string
	Address  string
	Vendor   string
	Platform string
	Site     string
}

func (t Target) Endpoint() transport.Endpoint {
	return transport.Endpoint{
		Hostname: t.Hostname,
		Address:  t.Address,
		Vendor:   t.Vendor,
		Platform: t.Platform,
	}
}

// Resolver expands a target specification into a concrete device list,
// scoped to the caller's organization.
type Resolver struct {
	store store.Store
}

func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns the device list for spec, deduplicated and ordered by
// device id so that repeated resolution of the same spec against the same
// inventory yields the same list.
//
// Explicit ids are matched against the organization's inventory; any id that
// does not resolve (unknown, or belonging to another organization) makes the
// whole resolution fail with InvalidTargetError. Filter specs select whatever
// currently matches, honoring EnabledOnly.
func (r *Resolver) Resolve(ctx context.Context, spec api.TargetSpec, orgID string) ([]Target, error) {
	if spec.Explicit() {
		return r.resolveExplicit(ctx, spec.DeviceIDs, orgID)
	}
	return r.resolveFilter(ctx, spec, orgID)
}

// ResolveExisting behaves like Resolve but tolerates explicit ids that no
// longer resolve, returning whatever still exists. Used for commit dispatch,
// where the spec was validated at preview time and the inventory may have
// shrunk since; the preview device set still fails unreviewed devices closed.
func (r *Resolver) ResolveExisting(ctx context.Context, spec api.TargetSpec, orgID string) ([]Target, error) {
	if !spec.Explicit() {
		return r.resolveFilter(ctx, spec, orgID)
	}

	filter := store.NewDeviceQueryFilter().ByOrgID(orgID).ByIDs(spec.DeviceIDs)
	opts := store.NewDeviceQueryOptions().WithSortOrder(store.SortByID)
	devices, err := r.store.Device().List(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return toTargets(devices), nil
}

func (r *Resolver) resolveExplicit(ctx context.Context, ids []uuid.UUID, orgID string) ([]Target, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	filter := store.NewDeviceQueryFilter().ByOrgID(orgID).ByIDs(unique)
	opts := store.NewDeviceQueryOptions().WithSortOrder(store.SortByID)
	devices, err := r.store.Device().List(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	if len(devices) != len(unique) {
		found := make(map[uuid.UUID]struct{}, len(devices))
		for _, d := range devices {
			found[d.ID] = struct{}{}
		}
		missing := make([]uuid.UUID, 0, len(unique)-len(devices))
		for _, id := range unique {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		sort.Slice(missing, func(i, j int) bool { return missing[i].String() < missing[j].String() })
		return nil, &InvalidTargetError{IDs: missing}
	}

	return toTargets(devices), nil
}

func (r *Resolver) resolveFilter(ctx context.Context, spec api.TargetSpec, orgID string) ([]Target, error) {
	filter := store.NewDeviceQueryFilter().ByOrgID(orgID)
	if spec.Site != "" {
		filter = filter.BySite(spec.Site)
	}
	if spec.Role != "" {
		filter = filter.ByRole(spec.Role)
	}
	if spec.Vendor != "" {
		filter = filter.ByVendor(spec.Vendor)
	}
	if spec.Platform != "" {
		filter = filter.ByPlatform(spec.Platform)
	}
	if spec.EnabledOnly {
		filter = filter.ByEnabled(true)
	}
	opts := store.NewDeviceQueryOptions().WithSortOrder(store.SortByID)
	devices, err := r.store.Device().List(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return toTargets(devices), nil
}

func toTargets(devices []model.Device) []Target {
	targets := make([]Target, 0, len(devices))
	for _, d := range devices {
		targets = append(targets, Target{
			ID:       d.ID,
			Hostname: d.Hostname,
			Address:  d.Address,
			Vendor:   d.Vendor,
			Platform: d.Platform,
			Site:     d.Site,
		})
	}
	return targets
}
