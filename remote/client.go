// Package remote talks to the remote task API that mirrors the board.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// DefaultBaseURL is where the remote task API listens unless configured.
const DefaultBaseURL = "http://localhost:3000/task"

const maxResponseBytes = 8 << 20

// ErrUnexpectedContentType is returned when the remote answers with anything
// other than JSON, whatever the status code.
var ErrUnexpectedContentType = errors.New("expected JSON response, but received something else")

// StatusError is a non-2xx JSON response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Client is a JSON client for the remote /task resource.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient builds a client for baseURL. A nil httpClient gets a client with
// a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if logger == nil {
		panic("remote.NewClient: logger is nil")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// Fetch returns every task known to the remote.
func (c *Client) Fetch(ctx context.Context) ([]domain.Task, error) {
	metrics, ctx := newCallMetrics(ctx, c.logger, "fetch", http.MethodGet)
	var tasks []domain.Task
	status, err := c.do(ctx, metrics, http.MethodGet, c.baseURL, nil, &tasks)
	metrics.SetTasksReturned(len(tasks))
	metrics.Log(status, err)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create posts a new task and returns the remote's copy.
func (c *Client) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	return c.send(ctx, "create", http.MethodPost, c.baseURL, task)
}

// Update replaces the task stored under task.ID.
func (c *Client) Update(ctx context.Context, task domain.Task) (domain.Task, error) {
	return c.send(ctx, "update", http.MethodPut, c.taskURL(task.ID), task)
}

// Delete removes the task with the given id and returns what the remote
// reports as deleted.
func (c *Client) Delete(ctx context.Context, id string) (domain.Task, error) {
	metrics, ctx := newCallMetrics(ctx, c.logger, "delete", http.MethodDelete)
	metrics.SetTaskID(id)
	var out domain.Task
	status, err := c.do(ctx, metrics, http.MethodDelete, c.taskURL(id), nil, &out)
	metrics.Log(status, err)
	return out, err
}

func (c *Client) send(ctx context.Context, op, method, target string, task domain.Task) (domain.Task, error) {
	metrics, ctx := newCallMetrics(ctx, c.logger, op, method)
	metrics.SetTaskID(task.ID)
	body, err := sonic.Marshal(task)
	if err != nil {
		metrics.Log(0, err)
		return domain.Task{}, fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	var out domain.Task
	status, err := c.do(ctx, metrics, method, target, body, &out)
	metrics.Log(status, err)
	return out, err
}

func (c *Client) taskURL(id string) string {
	return c.baseURL + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, metrics *callMetrics, method, target string, body []byte, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: read body: %w", method, target, err)
	}
	metrics.ObserveBytes(len(data))

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return resp.StatusCode, fmt.Errorf("%s %s: %w", method, target, ErrUnexpectedContentType)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{Method: method, URL: target, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := sonic.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s %s: decode: %w", method, target, err)
		}
	}
	return resp.StatusCode, nil
}
