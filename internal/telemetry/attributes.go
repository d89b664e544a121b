// SPDX-License-Identifier: MIT

package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys for HTSP round trips.
const (
	HTSPMethodKey    = "htsp.method"
	HTSPRequestIDKey = "htsp.request_id"
	HTSPEpochKey     = "htsp.epoch"
	HTSPResultKey    = "htsp.result"
)

// RequestAttributes describes one outbound request.
func RequestAttributes(method, requestID string, epoch uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTSPMethodKey, method),
		attribute.String(HTSPRequestIDKey, requestID),
		attribute.Int64(HTSPEpochKey, int64(epoch)),
	}
}
