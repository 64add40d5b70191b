// Package api exposes the board store over HTTP for presentation clients.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Eduardo-Nightborn/TaskMaster/board"
	"github.com/Eduardo-Nightborn/TaskMaster/domain"
	"github.com/Eduardo-Nightborn/TaskMaster/transfer"
)

// Service is the board store as seen by the handlers. *board.Store
// implements it.
type Service interface {
	Board() domain.Board
	GetAllTasks() []domain.Task
	Task(id string) (domain.Task, bool)
	Filter(f board.TaskFilter) []domain.Task
	Stats() board.Stats
	AddTask(ctx context.Context, data domain.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.Patch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) (domain.Task, error)
	MoveTask(ctx context.Context, id string, source, destination domain.Status, newIndex int) (domain.Task, error)
	ReorderTasks(ctx context.Context, status domain.Status, startIndex, endIndex int) error
	FetchTasks(ctx context.Context) error
	AddDependency(ctx context.Context, taskID, dependencyID string) (domain.Task, error)
	RemoveDependency(ctx context.Context, taskID, dependencyID string) (domain.Task, error)
	GetDependencies(taskID string) ([]domain.Task, error)
	GetDependents(taskID string) ([]domain.Task, error)
	Subscribe() (<-chan domain.Board, func())
}

// Options tunes the HTTP surface.
type Options struct {
	MaxBodyBytes int64
	KeepAlive    time.Duration
}

type handlers struct {
	svc    Service
	logger *log.Logger
	opts   Options
	now    func() time.Time
}

// Register wires up all board routes on the provided Echo instance.
func Register(e *echo.Echo, svc Service, opts Options, logger *log.Logger) {
	if logger == nil {
		panic("api.Register: logger is nil")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	h := &handlers{svc: svc, logger: logger, opts: opts, now: time.Now}

	e.GET("/healthz", healthz)

	g := e.Group("/api", RequestLogMiddleware(logger), RequestBodyMiddleware(opts.MaxBodyBytes))
	g.GET("/board", h.getBoard)
	g.GET("/tasks", h.listTasks)
	g.GET("/stats", h.getStats)
	g.POST("/tasks", h.createTask)
	g.PATCH("/tasks/:id", h.updateTask)
	g.DELETE("/tasks/:id", h.deleteTask)
	g.POST("/tasks/:id/move", h.moveTask)
	g.POST("/columns/:status/reorder", h.reorderColumn)
	g.GET("/tasks/:id/dependencies", h.getDependencies)
	g.GET("/tasks/:id/dependents", h.getDependents)
	g.PUT("/tasks/:id/dependencies/:depId", h.addDependency)
	g.DELETE("/tasks/:id/dependencies/:depId", h.removeDependency)
	g.POST("/refresh", h.refresh)
	g.GET("/export", h.exportTasks)
	g.POST("/import", h.importTasks)
	g.GET("/stream", h.stream)
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *handlers) getBoard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Board())
}

func (h *handlers) listTasks(c echo.Context) error {
	f := board.TaskFilter{
		Status:   domain.Status(c.QueryParam("status")),
		Priority: domain.Priority(c.QueryParam("priority")),
		Title:    strings.TrimSpace(c.QueryParam("q")),
	}
	if f.Status != "" && !f.Status.Valid() {
		return h.fail(c, domain.ErrUnknownStatus)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return h.fail(c, domain.ErrUnknownPriority)
	}
	return c.JSON(http.StatusOK, h.svc.Filter(f))
}

func (h *handlers) getStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *handlers) createTask(c echo.Context) error {
	var req domain.NewTask
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "title is required"})
	}
	if !req.Priority.Valid() {
		return h.fail(c, domain.ErrUnknownPriority)
	}
	task, err := h.svc.AddTask(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

func (h *handlers) updateTask(c echo.Context) error {
	var patch domain.Patch
	if err := decodeBody(c, &patch); err != nil {
		return h.fail(c, err)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "title must not be empty"})
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return h.fail(c, domain.ErrUnknownPriority)
	}
	task, err := h.svc.UpdateTask(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *handlers) deleteTask(c echo.Context) error {
	task, err := h.svc.DeleteTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *handlers) moveTask(c echo.Context) error {
	var req moveRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	task, err := h.svc.MoveTask(c.Request().Context(), c.Param("id"), req.Source, req.Destination, req.NewIndex)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *handlers) reorderColumn(c echo.Context) error {
	var req reorderRequest
	if err := decodeBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	status := domain.Status(c.Param("status"))
	if err := h.svc.ReorderTasks(c.Request().Context(), status, req.StartIndex, req.EndIndex); err != nil {
		return h.fail(c, err)
	}
	b := h.svc.Board()
	return c.JSON(http.StatusOK, b.Column(status))
}

func (h *handlers) getDependencies(c echo.Context) error {
	deps, err := h.svc.GetDependencies(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, deps)
}

func (h *handlers) getDependents(c echo.Context) error {
	deps, err := h.svc.GetDependents(c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, deps)
}

func (h *handlers) addDependency(c echo.Context) error {
	task, err := h.svc.AddDependency(c.Request().Context(), c.Param("id"), c.Param("depId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *handlers) removeDependency(c echo.Context) error {
	task, err := h.svc.RemoveDependency(c.Request().Context(), c.Param("id"), c.Param("depId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *handlers) refresh(c echo.Context) error {
	if err := h.svc.FetchTasks(c.Request().Context()); err != nil {
		h.logger.WithError(err).Error("refresh from remote failed")
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, h.svc.Board())
}

func (h *handlers) exportTasks(c echo.Context) error {
	data, err := transfer.Export(h.svc.GetAllTasks())
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+transfer.ExportFileName(h.now())+`"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

func (h *handlers) importTasks(c echo.Context) error {
	mode := c.QueryParam("duplicates")
	if mode != "" && mode != "skip" && mode != "include" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "duplicates must be skip or include"})
	}
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return h.fail(c, err)
	}
	tasks, err := transfer.Parse(data)
	if err != nil {
		return h.fail(c, err)
	}

	plan := transfer.Partition(h.svc.GetAllTasks(), tasks)
	resp := importResponse{New: len(plan.New), Duplicates: len(plan.Duplicates)}
	if len(plan.Duplicates) > 0 && mode == "" {
		return c.JSON(http.StatusConflict, resp)
	}

	n, err := transfer.Import(c.Request().Context(), h.svc, plan, mode == "include")
	resp.Imported = n
	if err != nil {
		h.logger.WithError(err).WithField("imported", n).Error("import stopped")
		return h.fail(c, err)
	}
	h.logger.WithFields(log.Fields{"imported": n, "duplicates": len(plan.Duplicates), "mode": mode}).Info("tasks imported")
	return c.JSON(http.StatusOK, resp)
}

// decodeBody reads a JSON request body, rejecting unknown fields.
func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errInvalidBody
	}
	return nil
}

var errInvalidBody = errors.New("invalid body")

// fail maps store and transfer errors onto HTTP responses.
func (h *handlers) fail(c echo.Context, err error) error {
	var depErr *board.DependencyError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &depErr):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Pending: depErr.Pending})
	case errors.Is(err, domain.ErrTaskNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrUnknownPriority),
		errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrSelfDependency),
		errors.Is(err, transfer.ErrInvalidFormat),
		errors.Is(err, errInvalidBody):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &tooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
	}
	h.logger.WithError(err).WithField("path", c.Path()).Error("request failed")
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
