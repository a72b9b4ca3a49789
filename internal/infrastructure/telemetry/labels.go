package telemetry

import (
	"context"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	LabelController = "controller"
	LabelRoute      = "route"
	LabelMethod     = "method"
	LabelTenantID   = "tenant_id"
	LabelOperation  = "operation"
	LabelContext    = "context"
)

// Ledger operations labelled in profiles
const (
	OperationPostEntry      = "post_entry"
	OperationReverseEntry   = "reverse_entry"
	OperationTrialBalance   = "trial_balance"
	OperationReconcile      = "reconcile"
	OperationAutoMatch      = "auto_match"
	OperationCalculateSplit = "calculate_split"
	OperationBatchPayout    = "batch_payout"
)

// maxLabelValue bounds label values so a bad caller cannot blow up the
// series count
const maxLabelValue = 128

// perRecordLabels name one document each and never reach the profiler
var perRecordLabels = []string{
	"user_id", "request_id", "trace_id", "span_id",
	"journal_entry_id", "commission_id", "payout_id", "reconciliation_id",
}

// WithProfilingLabels runs fn with labels attached to its goroutine
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// labelPairs flattens labels into sorted key/value pairs, normalizing keys
// to snake_case and dropping empty and per-record labels
func labelPairs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		v := labels[k]
		key := normalizeLabelKey(k)
		if key == "" || v == "" || slices.Contains(perRecordLabels, key) {
			continue
		}
		if len(v) > maxLabelValue {
			v = v[:maxLabelValue]
		}
		pairs = append(pairs, key, v)
	}
	return pairs
}

func normalizeLabelKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// HTTPRequestLabels labels a request by its route pattern. Empty values are
// left out.
func HTTPRequestLabels(controller, route, method, tenantID string) map[string]string {
	labels := make(map[string]string, 4)
	for k, v := range map[string]string{
		LabelController: controller,
		LabelRoute:      route,
		LabelMethod:     method,
		LabelTenantID:   tenantID,
	} {
		if v != "" {
			labels[k] = v
		}
	}
	return labels
}

// LedgerOperationLabels labels a ledger operation with the bounded context
// that runs it
func LedgerOperationLabels(operation, boundedContext string) map[string]string {
	labels := map[string]string{LabelOperation: operation}
	if boundedContext != "" {
		labels[LabelContext] = boundedContext
	}
	return labels
}
