package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ProbeReady checks the gateway's gRPC health endpoint. Used by doctor and
// before the first stream of a session so start failures surface as a
// service-unavailable condition instead of a mid-capture stall.
func ProbeReady(ctx context.Context, endpoint string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("dial gateway grpc %q: %w", endpoint, err)
	}
	defer func() { _ = conn.Close() }()

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		return &Failure{Code: FailureServiceUnavailable, Detail: err.Error()}
	}

	resp, err := healthpb.NewHealthClient(conn).Check(readyCtx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return &Failure{Code: FailureServiceUnavailable, Detail: err.Error()}
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return &Failure{
			Code:   FailureServiceUnavailable,
			Detail: "gateway health is " + resp.GetStatus().String(),
		}
	}
	return nil
}

// waitForReady blocks until the gRPC connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
