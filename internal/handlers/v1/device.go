package v1

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/auth"
	"github.com/wireline-net/wireline/internal/handlers/validator"
	"github.com/wireline-net/wireline/internal/service"
)

// (GET /api/v1/devices)
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	query := r.URL.Query()

	opts := []service.DeviceFilterFunc{}
	if site := query.Get("site"); site != "" {
		opts = append(opts, service.WithDeviceSite(site))
	}
	if role := query.Get("role"); role != "" {
		opts = append(opts, service.WithDeviceRole(role))
	}
	if vendor := query.Get("vendor"); vendor != "" {
		opts = append(opts, service.WithDeviceVendor(vendor))
	}
	if platform := query.Get("platform"); platform != "" {
		opts = append(opts, service.WithDevicePlatform(platform))
	}
	if query.Get("enabled") == "true" {
		opts = append(opts, service.WithEnabledOnly())
	}

	devices, err := h.deviceSrv.ListDevices(r.Context(), user, service.NewDeviceFilter(opts...))
	if err != nil {
		replyError(w, r, http.StatusInternalServerError, "failed to list devices")
		return
	}

	reply(w, r, http.StatusOK, devices)
}

// (POST /api/v1/devices)
func (h *Handler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	form, err := decodeDeviceForm(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	device, err := h.deviceSrv.CreateDevice(r.Context(), user, *form)
	if err != nil {
		switch err.(type) {
		case *service.ErrDuplicateHostname:
			replyError(w, r, http.StatusConflict, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to create device")
		}
		return
	}

	reply(w, r, http.StatusCreated, device)
}

// (GET /api/v1/devices/{id})
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid device id")
		return
	}

	device, err := h.deviceSrv.GetDevice(r.Context(), user, id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to get device")
		}
		return
	}

	reply(w, r, http.StatusOK, device)
}

// (PUT /api/v1/devices/{id})
func (h *Handler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid device id")
		return
	}

	form, err := decodeDeviceForm(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	device, err := h.deviceSrv.UpdateDevice(r.Context(), user, id, *form)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrDuplicateHostname:
			replyError(w, r, http.StatusConflict, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to update device")
		}
		return
	}

	reply(w, r, http.StatusOK, device)
}

// (DELETE /api/v1/devices/{id})
func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid device id")
		return
	}

	if err := h.deviceSrv.DeleteDevice(r.Context(), user, id); err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to delete device")
		}
		return
	}

	reply(w, r, http.StatusOK, struct{}{})
}

// (PUT /api/v1/devices/import)
func (h *Handler) ImportDevices(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	file, _, err := r.FormFile("file")
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "missing file part in multipart body")
		return
	}
	defer file.Close()

	report, err := h.deviceSrv.ImportDevices(r.Context(), user, file)
	if err != nil {
		switch err.(type) {
		case *service.ErrInvalidForm:
			replyError(w, r, http.StatusBadRequest, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to import devices")
		}
		return
	}

	reply(w, r, http.StatusOK, report)
}

// (GET /api/v1/devices/{id}/config)
func (h *Handler) GetDeviceConfig(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid device id")
		return
	}

	snapshot, err := h.deviceSrv.GetDeviceConfig(r.Context(), user, id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to get device config")
		}
		return
	}

	reply(w, r, http.StatusOK, snapshot)
}

func decodeDeviceForm(r *http.Request) (*api.DeviceForm, error) {
	var form api.DeviceForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		return nil, service.NewErrInvalidForm("invalid json body")
	}

	v := validator.NewValidator()
	v.Register(validator.NewDeviceValidationRules()...)
	if err := v.Struct(form); err != nil {
		return nil, err
	}

	return &form, nil
}
