package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer of application spans
const TracerName = "clutch-ledger"

// Span attribute keys used by the application services
const (
	SpanAttrTenantID         = "tenant_id"
	SpanAttrAccountID        = "account_id"
	SpanAttrEntryID          = "journal_entry_id"
	SpanAttrEntryNumber      = "entry_number"
	SpanAttrLineCount        = "line_count"
	SpanAttrSequence         = "sequence"
	SpanAttrBankAccountID    = "bank_account_id"
	SpanAttrReconciliationID = "reconciliation_id"
	SpanAttrPartnerID        = "partner_id"
	SpanAttrCommissionID     = "commission_id"
	SpanAttrPayoutID         = "payout_id"
	SpanAttrAmount           = "amount"
	SpanAttrStatus           = "status"
)

// StartServiceSpan starts an internal span named service.method. The caller
// ends it:
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "post")
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+method, trace.WithSpanKind(trace.SpanKindInternal))
}

// SetAttributes sets alternating key/value pairs on span. Pairs with a
// non-string key are skipped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil || !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	span.SetAttributes(attrs...)
}

// SetAttribute sets one attribute on span
func SetAttribute(span trace.Span, key string, value any) {
	SetAttributes(span, key, value)
}

// RecordError records err on span and marks it failed
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
