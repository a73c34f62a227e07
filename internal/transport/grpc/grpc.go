// Package grpc implements the gRPC transport for jukebox.
//
// The service carries the same JSON envelope as the other transports, using
// a JSON codec registered under the "json" content subtype so no generated
// protobuf stubs are needed. The standard grpc.health.v1 service is served
// alongside it.
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/jukebox/internal/dispatch"
	"github.com/nadzzz/jukebox/internal/message"
	"github.com/nadzzz/jukebox/internal/transport"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "jukebox.v1.Jukebox"

	// DispatchMethod is the full method name of the unary dispatch call.
	DispatchMethod = "/" + ServiceName + "/Dispatch"

	// CodecName is the content subtype clients must request.
	CodecName = "json"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

// jukeboxServer is the server API for the Jukebox service.
type jukeboxServer interface {
	Dispatch(ctx context.Context, env *message.Envelope) (*message.Result, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*jukeboxServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Dispatch", Handler: dispatchHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func dispatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(jukeboxServer).Dispatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DispatchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(jukeboxServer).Dispatch(ctx, req.(*message.Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

type service struct {
	handler transport.Handler
}

func (s *service) Dispatch(ctx context.Context, env *message.Envelope) (*message.Result, error) {
	env.Source = "grpc"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		env.Source = "grpc:" + p.Addr.String()
	}

	result, err := s.handler(ctx, env)
	switch {
	case err == nil:
		return result, nil
	case dispatch.IsClientError(err):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, status.FromContextError(err).Err()
	default:
		return nil, status.Error(codes.Internal, err.Error())
	}
}

// logRequests is a unary interceptor that logs each call and recovers panics.
func logRequests(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("grpc handler panic", "method", info.FullMethod, "panic", r)
			err = status.Error(codes.Internal, "internal error")
		}
		slog.Debug("grpc call", "method", info.FullMethod, "duration", time.Since(start), "code", status.Code(err).String())
	}()
	return handler(ctx, req)
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port int

	mu     sync.Mutex
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return t.Serve(ctx, lis, handler)
}

// Serve runs the gRPC server on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, handler transport.Handler) error {
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(logRequests))
	server.RegisterService(&serviceDesc, &service{handler: handler})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)

	t.mu.Lock()
	t.server = server
	t.health = hs
	t.mu.Unlock()

	slog.Info("grpc transport listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.stop()
	}()

	return server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.stop()
	return nil
}

func (t *Transport) stop() {
	t.mu.Lock()
	server, hs := t.server, t.health
	t.mu.Unlock()
	if hs != nil {
		hs.Shutdown()
	}
	if server != nil {
		server.GracefulStop()
	}
}

// Dispatch sends env over conn and returns the server's result.
func Dispatch(ctx context.Context, conn grpc.ClientConnInterface, env *message.Envelope) (*message.Result, error) {
	out := new(message.Result)
	if err := conn.Invoke(ctx, DispatchMethod, env, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}
