package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/auth"
	"github.com/wireline-net/wireline/internal/inventory"
	"github.com/wireline-net/wireline/internal/service/mappers"
	"github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/store/model"
)

type DeviceService struct {
	store store.Store
}

func NewDeviceService(s store.Store) *DeviceService {
	return &DeviceService{store: s}
}

func (s *DeviceService) ListDevices(ctx context.Context, user auth.User, filter *DeviceFilter) (api.DeviceList, error) {
	storeFilter := store.NewDeviceQueryFilter().ByOrgID(user.Organization)
	if filter.Site != "" {
		storeFilter = storeFilter.BySite(filter.Site)
	}
	if filter.Role != "" {
		storeFilter = storeFilter.ByRole(filter.Role)
	}
	if filter.Vendor != "" {
		storeFilter = storeFilter.ByVendor(filter.Vendor)
	}
	if filter.Platform != "" {
		storeFilter = storeFilter.ByPlatform(filter.Platform)
	}
	if filter.EnabledOnly {
		storeFilter = storeFilter.ByEnabled(true)
	}

	devices, err := s.store.Device().List(ctx, storeFilter, store.NewDeviceQueryOptions().WithSortOrder(store.SortByHostname))
	if err != nil {
		return nil, err
	}

	return mappers.DeviceListToApi(devices), nil
}

func (s *DeviceService) GetDevice(ctx context.Context, user auth.User, id uuid.UUID) (*api.Device, error) {
	device, err := s.getOwnedDevice(ctx, user, id)
	if err != nil {
		return nil, err
	}

	result := mappers.DeviceToApi(*device)
	return &result, nil
}

func (s *DeviceService) CreateDevice(ctx context.Context, user auth.User, form api.DeviceForm) (*api.Device, error) {
	device, err := s.store.Device().Create(ctx, mappers.DeviceFromForm(uuid.New(), user, form))
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, NewErrDuplicateHostname(form.Hostname)
		}
		return nil, err
	}

	result := mappers.DeviceToApi(*device)
	return &result, nil
}

// UpdateDevice replaces the device record with the form. An absent enabled
// flag keeps the current value, everything else is taken from the form.
func (s *DeviceService) UpdateDevice(ctx context.Context, user auth.User, id uuid.UUID, form api.DeviceForm) (*api.Device, error) {
	current, err := s.getOwnedDevice(ctx, user, id)
	if err != nil {
		return nil, err
	}

	device := mappers.DeviceFromForm(current.ID, user, form)
	if form.Enabled == nil {
		device.Enabled = current.Enabled
	}

	updated, err := s.store.Device().Update(ctx, device)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, NewErrDuplicateHostname(form.Hostname)
		}
		return nil, err
	}

	result := mappers.DeviceToApi(*updated)
	return &result, nil
}

func (s *DeviceService) DeleteDevice(ctx context.Context, user auth.User, id uuid.UUID) error {
	if _, err := s.getOwnedDevice(ctx, user, id); err != nil {
		return err
	}

	return s.store.Device().Delete(ctx, id)
}

// ImportDevices merges an uploaded inventory workbook into the tenant's
// devices, keyed by hostname. Rows the parser rejected are reported and
// skipped; the accepted rows are applied in one transaction.
func (s *DeviceService) ImportDevices(ctx context.Context, user auth.User, reader io.Reader) (*api.ImportReport, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file content: %w", err)
	}

	if len(content) == 0 {
		return nil, NewErrInvalidForm("empty file uploaded")
	}

	if !inventory.IsWorkbook(content) {
		return nil, NewErrInvalidForm("file is not an xlsx workbook")
	}

	rows, rowErrors, err := inventory.ParseWorkbook(content)
	if err != nil {
		return nil, NewErrInvalidForm(err.Error())
	}

	zap.S().Named("device_service").Infow("importing inventory workbook",
		"org_id", user.Organization, "rows", len(rows), "bad_rows", len(rowErrors))

	existing, err := s.store.Device().List(ctx, store.NewDeviceQueryFilter().ByOrgID(user.Organization), store.NewDeviceQueryOptions())
	if err != nil {
		return nil, err
	}
	byHostname := make(map[string]model.Device, len(existing))
	for _, device := range existing {
		byHostname[device.Hostname] = device
	}

	report := api.ImportReport{Skipped: len(rowErrors), Errors: rowErrors}

	ctx, err = s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.Hostname]; dup {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("row %d: duplicate hostname %q in workbook", row.Line, row.Hostname))
			continue
		}
		seen[row.Hostname] = struct{}{}

		if current, found := byHostname[row.Hostname]; found {
			if _, err := s.store.Device().Update(ctx, mappers.DeviceFromRow(current.ID, user, row)); err != nil {
				_, _ = store.Rollback(ctx)
				return nil, err
			}
			report.Updated++
			continue
		}

		if _, err := s.store.Device().Create(ctx, mappers.DeviceFromRow(uuid.New(), user, row)); err != nil {
			_, _ = store.Rollback(ctx)
			return nil, err
		}
		report.Created++
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	return &report, nil
}

// GetDeviceConfig returns the latest captured configuration of a device,
// produced by the most recent backup job that covered it.
func (s *DeviceService) GetDeviceConfig(ctx context.Context, user auth.User, id uuid.UUID) (*api.ConfigSnapshot, error) {
	device, err := s.getOwnedDevice(ctx, user, id)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.store.Snapshot().Latest(ctx, device.ID, user.Organization)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrResourceNotFound(id, "config snapshot for device")
		}
		return nil, err
	}

	result := mappers.SnapshotToApi(*snapshot)
	return &result, nil
}

// getOwnedDevice loads a device and hides other tenants' devices behind
// not-found.
func (s *DeviceService) getOwnedDevice(ctx context.Context, user auth.User, id uuid.UUID) (*model.Device, error) {
	device, err := s.store.Device().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrDeviceNotFound(id)
		}
		return nil, err
	}
	if device.OrgID != user.Organization {
		return nil, NewErrDeviceNotFound(id)
	}
	return device, nil
}

type DeviceFilterFunc func(f *DeviceFilter)

type DeviceFilter struct {
	Site        string
	Role        string
	Vendor      string
	Platform    string
	EnabledOnly bool
}

func NewDeviceFilter(filters ...DeviceFilterFunc) *DeviceFilter {
	f := &DeviceFilter{}
	for _, fn := range filters {
		fn(f)
	}
	return f
}

func WithDeviceSite(site string) DeviceFilterFunc {
	return func(f *DeviceFilter) {
		f.Site = site
	}
}

func WithDeviceRole(role string) DeviceFilterFunc {
	return func(f *DeviceFilter) {
		f.Role = role
	}
}

func WithDeviceVendor(vendor string) DeviceFilterFunc {
	return func(f *DeviceFilter) {
		f.Vendor = vendor
	}
}

func WithDevicePlatform(platform string) DeviceFilterFunc {
	return func(f *DeviceFilter) {
		f.Platform = platform
	}
}

func WithEnabledOnly() DeviceFilterFunc {
	return func(f *DeviceFilter) {
		f.EnabledOnly = true
	}
}
