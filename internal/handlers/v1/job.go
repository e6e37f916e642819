package v1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/auth"
	"github.com/wireline-net/wireline/internal/handlers/validator"
	"github.com/wireline-net/wireline/internal/service"
)

// (POST /api/v1/jobs)
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	var form api.JobSubmission
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	v := validator.NewValidator()
	v.Register(validator.NewJobValidationRules()...)
	if err := v.Struct(form); err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.jobSrv.SubmitJob(r.Context(), user, form)
	if err != nil {
		switch err.(type) {
		case *service.ErrInvalidForm, *service.ErrInvalidTarget:
			replyError(w, r, http.StatusBadRequest, err.Error())
		case *service.ErrConfirmationRequired, *service.ErrStalePreview:
			replyError(w, r, http.StatusConflict, err.Error())
		case *service.ErrQueueFull:
			replyError(w, r, http.StatusServiceUnavailable, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to submit job")
		}
		return
	}

	reply(w, r, http.StatusCreated, job)
}

// (GET /api/v1/jobs)
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	query := r.URL.Query()

	opts := []service.JobFilterFunc{}
	if states := query["state"]; len(states) > 0 {
		opts = append(opts, service.WithJobStates(states))
	}
	if jobType := query.Get("type"); jobType != "" {
		opts = append(opts, service.WithJobType(jobType))
	}

	limit, offset, err := pageParams(query.Get("limit"), query.Get("offset"))
	if err != nil {
		replyError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	opts = append(opts, service.WithJobPage(limit, offset))

	jobs, err := h.jobSrv.ListJobs(r.Context(), user, service.NewJobFilter(opts...))
	if err != nil {
		replyError(w, r, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	reply(w, r, http.StatusOK, jobs)
}

// (GET /api/v1/jobs/{id})
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobSrv.GetJob(r.Context(), user, id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to get job")
		}
		return
	}

	reply(w, r, http.StatusOK, job)
}

// (DELETE /api/v1/jobs/{id})
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobSrv.CancelJob(r.Context(), user, id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		case *service.ErrStateConflict:
			replyError(w, r, http.StatusConflict, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to cancel job")
		}
		return
	}

	reply(w, r, http.StatusOK, job)
}

// (GET /api/v1/jobs/{id}/results)
func (h *Handler) GetJobResults(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	results, err := h.jobSrv.GetJobResults(r.Context(), user, id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to get job results")
		}
		return
	}

	reply(w, r, http.StatusOK, results)
}

// (GET /api/v1/jobs/{id}/logs)
func (h *Handler) GetJobLogs(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		replyError(w, r, http.StatusBadRequest, "invalid job id")
		return
	}

	logs, err := h.jobSrv.GetJobLogs(r.Context(), user, id)
	if err != nil {
		switch err.(type) {
		case *service.ErrResourceNotFound:
			replyError(w, r, http.StatusNotFound, err.Error())
		default:
			replyError(w, r, http.StatusInternalServerError, "failed to get job logs")
		}
		return
	}

	reply(w, r, http.StatusOK, logs)
}

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

func pageParams(limitRaw, offsetRaw string) (int, int, error) {
	limit := defaultPageLimit
	if limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed < 1 {
			return 0, 0, service.NewErrInvalidForm("limit must be a positive integer")
		}
		limit = min(parsed, maxPageLimit)
	}

	offset := 0
	if offsetRaw != "" {
		parsed, err := strconv.Atoi(offsetRaw)
		if err != nil || parsed < 0 {
			return 0, 0, service.NewErrInvalidForm("offset must be a non-negative integer")
		}
		offset = parsed
	}

	return limit, offset, nil
}
