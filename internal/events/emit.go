package events

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// The emit helpers marshal a payload and push it at the producer. Broadcast
// failure never reaches the caller; it is logged and dropped.

func EmitJobState(ctx context.Context, ep *EventProducer, event JobStateEvent) {
	emit(ctx, ep, JobStateMessageKind, event)
}

func EmitJobProgress(ctx context.Context, ep *EventProducer, event JobProgressEvent) {
	emit(ctx, ep, JobProgressMessageKind, event)
}

func EmitDeviceResult(ctx context.Context, ep *EventProducer, event DeviceResultEvent) {
	emit(ctx, ep, DeviceResultMessageKind, event)
}

func emit(ctx context.Context, ep *EventProducer, kind string, payload any) {
	if ep == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		zap.S().Named("events").Errorw("failed to marshal event", "kind", kind, "error", err)
		return
	}

	if err := ep.Write(ctx, kind, bytes.NewReader(data)); err != nil {
		zap.S().Named("events").Errorw("failed to buffer event", "kind", kind, "error", err)
	}
}
