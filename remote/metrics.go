package remote

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName      = "github.com/Eduardo-Nightborn/TaskMaster/remote"
	callSpanName    = "remote.task"
	callEventName   = "remote.task.call"
	callEventDomain = "taskmaster.remote"
	observabilityEv = "observability.event"
)

// callMetrics records one call against the remote task API. Log emits a
// structured logrus entry and ends the span opened by newCallMetrics.
type callMetrics struct {
	logger    *log.Logger
	span      trace.Span
	start     time.Time
	operation string
	method    string
	taskID    string
	tasks     int
	bytes     int
}

func newCallMetrics(ctx context.Context, logger *log.Logger, operation, method string) (*callMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, callSpanName, trace.WithSpanKind(trace.SpanKindClient))
	return &callMetrics{
		logger:    logger,
		span:      span,
		start:     time.Now(),
		operation: operation,
		method:    method,
		tasks:     -1,
	}, ctx
}

func (m *callMetrics) SetTaskID(id string) { m.taskID = id }

func (m *callMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasks = count
}

func (m *callMetrics) ObserveBytes(n int) {
	if n > 0 {
		m.bytes = n
	}
}

func (m *callMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	defer m.span.End()

	attrs := map[string]any{
		"taskmaster.remote.operation": m.operation,
		"http.method":                 m.method,
		"taskmaster.remote.total_ms":  durationToMillis(time.Since(m.start)),
	}
	if status > 0 {
		attrs["http.status_code"] = status
	}
	if m.taskID != "" {
		attrs["taskmaster.task.id"] = m.taskID
	}
	if m.tasks >= 0 {
		attrs["taskmaster.remote.tasks_returned"] = m.tasks
	}
	if m.bytes > 0 {
		attrs["taskmaster.remote.response_bytes"] = m.bytes
	}
	if err != nil {
		attrs["error.message"] = err.Error()
	}

	severityText, severityNumber := severityForStatus(status, err)
	kvs := toKeyValues(attrs)
	m.span.SetAttributes(kvs...)
	m.span.AddEvent(observabilityEv, trace.WithAttributes(append(kvs,
		attribute.String("event.name", callEventName),
		attribute.String("event.domain", callEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	)...))
	if err != nil {
		m.span.SetStatus(codes.Error, err.Error())
	} else {
		m.span.SetStatus(codes.Ok, "")
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      callEventName,
		"event.domain":    callEventDomain,
		"attributes":      attrs,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if sc := m.span.SpanContext(); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}
	m.logger.WithFields(fields).Log(levelForSeverity(severityNumber), observabilityEv)
}

// severityForStatus maps a call outcome onto OpenTelemetry log severities.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil && status < http.StatusBadRequest, status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func levelForSeverity(n int) log.Level {
	switch {
	case n >= 17:
		return log.ErrorLevel
	case n >= 13:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func toKeyValues(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		}
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
