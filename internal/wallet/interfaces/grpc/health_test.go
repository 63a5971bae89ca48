package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthServer_CheckOnce(t *testing.T) {
	var ledgerDown atomic.Bool
	s := NewHealthServer(map[string]Probe{
		"database": func(context.Context) error { return nil },
		"ledger": func(context.Context) error {
			if ledgerDown.Load() {
				return errors.New("horizon unreachable")
			}
			return nil
		},
	}, time.Minute)
	ctx := context.Background()

	st, err := s.Check(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)

	assert.True(t, s.CheckOnce(ctx))
	st, _ = s.Check(ctx, ServiceName)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	ledgerDown.Store(true)
	assert.False(t, s.CheckOnce(ctx))
	st, _ = s.Check(ctx, "")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)
	st, _ = s.Check(ctx, "database")
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)
	st, _ = s.Check(ctx, "ledger")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)

	_, err = s.Check(ctx, "unknown")
	assert.Error(t, err)
}

func TestHealthServer_OverGRPC(t *testing.T) {
	s := NewHealthServer(map[string]Probe{"database": func(context.Context) error { return nil }}, 10*time.Millisecond)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	s.Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	require.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
