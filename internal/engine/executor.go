package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/store/model"
	"github.com/wireline-net/wireline/internal/transport"
	"github.com/wireline-net/wireline/pkg/metrics"
)

// executeDevice runs one work unit against one device and always comes back
// with a result. Transport failures, timeouts and driver panics are folded
// into the result; nothing a single device does may escape into the dispatch
// loop and take the rest of the job down with it.
//
// The call deadline is derived from the engine's device timeout, not from the
// job context: a cancelled job stops launching new devices but lets the ones
// already talking to hardware finish cleanly.
func (e *Engine) executeDevice(target Target, unit *workUnit) (res model.DeviceResult) {
	res = model.DeviceResult{
		DeviceID:  target.ID,
		Hostname:  target.Hostname,
		StartedAt: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			res.Status = model.ResultStatusFailed
			res.ErrorKind = string(transport.ProtocolError)
			res.Error = fmt.Sprintf("driver panic: %v", r)
			zap.S().Named("engine").Errorw("device driver panicked",
				"device_id", target.ID,
				"hostname", target.Hostname,
				"panic", r,
			)
		}
		res.FinishedAt = time.Now()
		metrics.IncreaseDeviceExecutionsMetric(res.Status, res.ErrorKind)
		metrics.ObserveDeviceExecutionDuration(res.Status, res.FinishedAt.Sub(res.StartedAt).Seconds())
	}()

	if unit.kind == workApply {
		if _, ok := unit.allowed[target.ID]; !ok {
			res.Status = model.ResultStatusFailed
			res.ErrorKind = string(api.ErrorKindInvalidTarget)
			res.Error = "device was not part of the reviewed preview"
			return res
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.deviceTimeout)
	defer cancel()

	output, err := e.call(ctx, target.Endpoint(), unit)
	if err != nil {
		res.Status = model.ResultStatusFailed
		res.ErrorKind = string(transport.KindOf(err))
		res.Error = err.Error()
		return res
	}

	res.Status = model.ResultStatusSuccess
	res.Output = output
	return res
}

func (e *Engine) call(ctx context.Context, ep transport.Endpoint, unit *workUnit) (string, error) {
	switch unit.kind {
	case workCommands:
		return e.driver.RunCommands(ctx, ep, unit.commands)
	case workBackup:
		return e.driver.FetchConfig(ctx, ep)
	case workPreview:
		return e.driver.DiffConfig(ctx, ep, unit.snippet, unit.mode)
	case workApply:
		return e.driver.ApplyConfig(ctx, ep, unit.snippet, unit.mode)
	default:
		return "", fmt.Errorf("unknown work kind %d", unit.kind)
	}
}
