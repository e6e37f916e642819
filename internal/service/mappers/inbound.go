package mappers

import (
	"github.com/google/uuid"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/auth"
	"github.com/wireline-net/wireline/internal/inventory"
	"github.com/wireline-net/wireline/internal/store/model"
)

func JobFromSubmission(id uuid.UUID, user auth.User, form api.JobSubmission) model.Job {
	return model.Job{
		ID:        id,
		Type:      string(form.Type),
		State:     model.JobStateQueued,
		OrgID:     user.Organization,
		Requester: user.Username,
		Target:    model.MakeJSONField(form.Target),
		Payload:   model.MakeJSONField(form.Payload),
		Confirmed: form.Confirm,
		PreviewOf: form.PreviewID,
	}
}

func DeviceFromForm(id uuid.UUID, user auth.User, form api.DeviceForm) model.Device {
	device := model.Device{
		ID:       id,
		Hostname: form.Hostname,
		OrgID:    user.Organization,
		Address:  form.Address,
		Vendor:   form.Vendor,
		Platform: form.Platform,
		Site:     form.Site,
		Role:     form.Role,
		Enabled:  true,
	}
	if form.Enabled != nil {
		device.Enabled = *form.Enabled
	}
	return device
}

func DeviceFromRow(id uuid.UUID, user auth.User, row inventory.Row) model.Device {
	return model.Device{
		ID:       id,
		Hostname: row.Hostname,
		OrgID:    user.Organization,
		Address:  row.Address,
		Vendor:   row.Vendor,
		Platform: row.Platform,
		Site:     row.Site,
		Role:     row.Role,
		Enabled:  row.Enabled,
	}
}
