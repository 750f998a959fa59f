package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Observer logs and records metrics for upstream calls and inbound requests.
// The zero value is usable and discards everything.
type Observer struct {
	logger  Logger
	metrics MetricsRecorder
}

func NewObserver(logger Logger, metrics MetricsRecorder) *Observer {
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}
	return &Observer{logger: glog.Ensure(logger), metrics: metrics}
}

func (o *Observer) Logger() Logger {
	if o == nil || o.logger == nil {
		return glog.Nop()
	}
	return o.logger
}

func (o *Observer) Metrics() MetricsRecorder {
	if o == nil || o.metrics == nil {
		return NopMetricsRecorder{}
	}
	return o.metrics
}

// ObserveUpstreamCall records one outbound call. status is zero when the call
// never produced a response.
func (o *Observer) ObserveUpstreamCall(
	ctx context.Context,
	startedAt time.Time,
	upstream string,
	operation string,
	status int,
	err error,
	fields map[string]any,
) {
	if o == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if err != nil || status >= 400 || status == 0 {
		outcome = "failure"
	}
	elapsed := time.Since(startedAt).Milliseconds()

	contextFields := cloneFields(fields)
	contextFields["upstream"] = upstream
	contextFields["operation"] = operation
	contextFields["outcome"] = outcome
	contextFields["duration_ms"] = elapsed
	if status > 0 {
		contextFields["status_code"] = status
	}
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"upstream":  upstream,
		"operation": operation,
		"outcome":   outcome,
		"status":    statusTag(status),
	}
	o.recordCounter(ctx, MetricUpstreamCalls, 1, tags)
	o.recordHistogram(ctx, MetricUpstreamCallDuration, float64(elapsed), tags)

	if outcome == "failure" {
		o.logWithLevel(ctx, "warn", upstream+" "+operation+" failed", contextFields)
		return
	}
	o.logWithLevel(ctx, "debug", upstream+" "+operation+" succeeded", contextFields)
}

// ObserveRequest records one inbound request handled by the dispatcher.
func (o *Observer) ObserveRequest(ctx context.Context, startedAt time.Time, method, path string, status int, fields map[string]any) {
	if o == nil {
		return
	}
	elapsed := time.Since(startedAt).Milliseconds()
	contextFields := cloneFields(fields)
	contextFields["method"] = method
	contextFields["path"] = path
	contextFields["status_code"] = status
	contextFields["duration_ms"] = elapsed

	tags := map[string]string{
		"method": method,
		"path":   path,
		"status": statusTag(status),
	}
	o.recordCounter(ctx, MetricRequests, 1, tags)
	o.recordHistogram(ctx, MetricRequestDuration, float64(elapsed), tags)

	level := "info"
	if status >= 500 {
		level = "error"
	}
	o.logWithLevel(ctx, level, "gateway request", contextFields)
}

func (o *Observer) Count(ctx context.Context, name string, tags map[string]string) {
	if o == nil {
		return
	}
	o.recordCounter(ctx, name, 1, tags)
}

func (o *Observer) Debug(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "debug", message, fields)
}

func (o *Observer) Warn(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "warn", message, fields)
}

func (o *Observer) Error(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "error", message, fields)
}

func (o *Observer) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if o == nil || o.logger == nil {
		return
	}
	logger := o.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	args := flattenFields(fields)
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
		args = nil
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logger.Debug(message, args...)
	case "warn":
		logger.Warn(message, args...)
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (o *Observer) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (o *Observer) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func statusTag(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}

// FieldString renders a loosely typed field for logs and tags.
func FieldString(value any) string {
	if value == nil {
		return ""
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "<nil>" {
		return ""
	}
	return text
}
