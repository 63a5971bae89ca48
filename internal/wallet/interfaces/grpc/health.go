// Package grpc 钱包服务的 gRPC 接口，目前只暴露标准健康检查
package grpc

import (
	"context"
	"sort"
	"time"

	"github.com/wyfcoding/transcrypt/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName 对外登记的服务名
const ServiceName = "transcrypt.wallet"

// Probe 依赖探活，返回 nil 表示可用
type Probe func(ctx context.Context) error

// HealthServer 周期性执行依赖探活并更新 grpc.health.v1 状态
type HealthServer struct {
	health   *health.Server
	probes   map[string]Probe
	interval time.Duration
	timeout  time.Duration
}

func NewHealthServer(probes map[string]Probe, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s := &HealthServer{
		health:   health.NewServer(),
		probes:   probes,
		interval: interval,
		timeout:  5 * time.Second,
	}
	s.setAll(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Register 注册健康检查与反射服务
func (s *HealthServer) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
}

// CheckOnce 执行一轮探活；全部通过时整体状态为 SERVING
func (s *HealthServer) CheckOnce(ctx context.Context) bool {
	healthy := true
	for _, name := range s.names() {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.probes[name](pctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			healthy = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn(ctx, "health probe failed", "probe", name, "error", err)
		}
		s.health.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(ServiceName, overall)
	return healthy
}

// Run 按间隔探活直到 ctx 结束，结束时置为 NOT_SERVING
func (s *HealthServer) Run(ctx context.Context) error {
	s.CheckOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return nil
		case <-ticker.C:
			s.CheckOnce(ctx)
		}
	}
}

// Check 直接查询当前状态
func (s *HealthServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func (s *HealthServer) setAll(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	for name := range s.probes {
		s.health.SetServingStatus(name, status)
	}
}

func (s *HealthServer) names() []string {
	names := make([]string, 0, len(s.probes))
	for name := range s.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
