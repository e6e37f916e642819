// Package client is a thin HTTP client for the wireline API, used by the
// operator CLI and by end to end tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/pkg/requestid"
)

type Client struct {
	server string
	token  string
	http   *http.Client
}

// New returns a client for the given server URL. An empty token leaves the
// Authorization header unset, which only works against servers running with
// authentication disabled.
func New(server, token string) *Client {
	return &Client{
		server: server,
		token:  token,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// APIError carries the decoded error body of a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("server returned %d: %s (request id %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) SubmitJob(ctx context.Context, submission api.JobSubmission) (*api.Job, error) {
	var job api.Job
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs", nil, submission, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs filters by state (repeatable) and type; zero values list all.
func (c *Client) ListJobs(ctx context.Context, states []string, jobType string) (api.JobList, error) {
	query := url.Values{}
	for _, state := range states {
		query.Add("state", state)
	}
	if jobType != "" {
		query.Set("type", jobType)
	}

	var jobs api.JobList
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs", query, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) GetJob(ctx context.Context, id uuid.UUID) (*api.Job, error) {
	var job api.Job
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id.String(), nil, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) CancelJob(ctx context.Context, id uuid.UUID) (*api.Job, error) {
	var job api.Job
	if err := c.do(ctx, http.MethodDelete, "/api/v1/jobs/"+id.String(), nil, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) GetJobResults(ctx context.Context, id uuid.UUID) ([]api.DeviceResult, error) {
	var results []api.DeviceResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id.String()+"/results", nil, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) GetJobLogs(ctx context.Context, id uuid.UUID) ([]api.JobLogEntry, error) {
	var logs []api.JobLogEntry
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id.String()+"/logs", nil, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) ListDevices(ctx context.Context) (api.DeviceList, error) {
	var devices api.DeviceList
	if err := c.do(ctx, http.MethodGet, "/api/v1/devices", nil, nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (c *Client) GetDevice(ctx context.Context, id uuid.UUID) (*api.Device, error) {
	var device api.Device
	if err := c.do(ctx, http.MethodGet, "/api/v1/devices/"+id.String(), nil, nil, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

func (c *Client) CreateDevice(ctx context.Context, form api.DeviceForm) (*api.Device, error) {
	var device api.Device
	if err := c.do(ctx, http.MethodPost, "/api/v1/devices", nil, form, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

func (c *Client) UpdateDevice(ctx context.Context, id uuid.UUID, form api.DeviceForm) (*api.Device, error) {
	var device api.Device
	if err := c.do(ctx, http.MethodPut, "/api/v1/devices/"+id.String(), nil, form, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

func (c *Client) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/devices/"+id.String(), nil, nil, nil)
}

func (c *Client) GetDeviceConfig(ctx context.Context, id uuid.UUID) (*api.ConfigSnapshot, error) {
	var snapshot api.ConfigSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/devices/"+id.String()+"/config", nil, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ImportDevices uploads a spreadsheet as the file part of a multipart body.
func (c *Client) ImportDevices(ctx context.Context, filename string, content io.Reader) (*api.ImportReport, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.server+"/api/v1/devices/import", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var report api.ImportReport
	if err := decodeResponse(resp, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	endpoint := c.server + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-request-id", requestid.Generate())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	var body api.Error
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
		if body.RequestID != nil {
			apiErr.RequestID = *body.RequestID
		}
	}
	return apiErr
}
