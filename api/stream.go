package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// stream pushes the board as server-sent events: the current board first, then
// a fresh copy after every change. Comments keep idle connections open.
func (h *handlers) stream(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}
	res.WriteHeader(http.StatusOK)

	// subscribe before the first snapshot so no change is missed in between
	updates, cancel := h.svc.Subscribe()
	defer cancel()

	if _, err := res.Write([]byte(":ok\n\n")); err != nil {
		return nil
	}
	flusher.Flush()
	if err := writeBoardEvent(res, h.svc.Board()); err != nil {
		h.logger.WithError(err).Debug("stream closed")
		return nil
	}
	flusher.Flush()

	ctx := c.Request().Context()
	ticker := time.NewTicker(h.opts.KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case b := <-updates:
			if err := writeBoardEvent(res, b); err != nil {
				h.logger.WithError(err).Debug("stream closed")
				return nil
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := res.Write([]byte(":keepalive\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}

func writeBoardEvent(w http.ResponseWriter, b domain.Board) error {
	data, err := sonic.Marshal(b)
	if err != nil {
		return err
	}
	buf := make([]byte, 0, len(data)+8)
	buf = append(buf, "data: "...)
	buf = append(buf, data...)
	buf = append(buf, "\n\n"...)
	_, err = w.Write(buf)
	return err
}
