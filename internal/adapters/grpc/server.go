package grpc

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/application"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// SettlementInternalServer exposes the service over gRPC for mesh-internal
// probes. Settlement operations stay on HTTP; peers only need health today.
type SettlementInternalServer struct {
	grpc_health_v1.UnimplementedHealthServer
	service *application.Service
}

func NewSettlementInternalServer(service *application.Service) *SettlementInternalServer {
	return &SettlementInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc *SettlementInternalServer) {
	grpc_health_v1.RegisterHealthServer(server, svc)
}

func (s *SettlementInternalServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	_ = ctx
	_ = req
	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (s *SettlementInternalServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	_ = req
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING})
}
