// Package v1 wires the HTTP surface of the job engine. Handlers decode and
// validate requests, call into the service layer and map service errors onto
// status codes; no business rules live here.
package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/service"
	"github.com/wireline-net/wireline/pkg/requestid"
)

type Handler struct {
	jobSrv    *service.JobService
	deviceSrv *service.DeviceService
}

func NewHandler(jobService *service.JobService, deviceService *service.DeviceService) *Handler {
	return &Handler{
		jobSrv:    jobService,
		deviceSrv: deviceService,
	}
}

// RegisterRoutes mounts the v1 API. The router is expected to carry the
// authenticator middleware already; every handler assumes a user in the
// request context.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/api/v1/jobs", func(r chi.Router) {
		r.Post("/", h.SubmitJob)
		r.Get("/", h.ListJobs)
		r.Get("/{id}", h.GetJob)
		r.Delete("/{id}", h.CancelJob)
		r.Get("/{id}/results", h.GetJobResults)
		r.Get("/{id}/logs", h.GetJobLogs)
	})
	router.Route("/api/v1/devices", func(r chi.Router) {
		r.Get("/", h.ListDevices)
		r.Post("/", h.CreateDevice)
		r.Put("/import", h.ImportDevices)
		r.Get("/{id}", h.GetDevice)
		r.Put("/{id}", h.UpdateDevice)
		r.Delete("/{id}", h.DeleteDevice)
		r.Get("/{id}/config", h.GetDeviceConfig)
	})
}

func reply(w http.ResponseWriter, r *http.Request, code int, payload any) {
	render.Status(r, code)
	render.JSON(w, r, payload)
}

func replyError(w http.ResponseWriter, r *http.Request, code int, message string) {
	render.Status(r, code)
	render.JSON(w, r, api.Error{Message: message, RequestID: requestid.FromContextPtr(r.Context())})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
