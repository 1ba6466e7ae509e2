package api

import (
	"context"
	"time"

	"villastay/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const requestIDMetadataKey = "x-request-id"

// ChainUnaryInterceptors runs interceptors in the given order, the first one
// outermost.
func ChainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return callChain(ctx, req, info, interceptors, handler)
	}
}

func callChain(ctx context.Context, req any, info *grpc.UnaryServerInfo, chain []grpc.UnaryServerInterceptor, final grpc.UnaryHandler) (any, error) {
	if len(chain) == 0 {
		return final(ctx, req)
	}
	return chain[0](ctx, req, info, func(ctx context.Context, req any) (any, error) {
		return callChain(ctx, req, info, chain[1:], final)
	})
}

// callLogger logs one finished call and counts it by method and code.
type callLogger struct {
	log zerolog.Logger
}

func newCallLogger(logger *zerolog.Logger) callLogger {
	if logger == nil {
		return callLogger{log: zerolog.Nop()}
	}
	return callLogger{log: logger.With().Str("component", "grpc").Logger()}
}

func (c callLogger) done(ctx context.Context, method, requestID string, start time.Time, err error) {
	code := status.Code(err).String()
	metrics.IncGRPC(method, code)

	event := c.log.Debug()
	if err != nil {
		event = c.log.Warn().Err(err)
	}
	event.
		Str("request_id", requestID).
		Str("method", method).
		Str("remote", remoteAddr(ctx)).
		Str("code", code).
		Dur("duration", time.Since(start)).
		Msg("grpc request")
}

func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	calls := newCallLogger(logger)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)
		calls.done(ctx, info.FullMethod, requestID, start, err)
		return resp, err
	}
}

// LoggingStreamInterceptor covers health Watch and reflection streams.
func LoggingStreamInterceptor(logger *zerolog.Logger) grpc.StreamServerInterceptor {
	calls := newCallLogger(logger)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		requestID := requestIDFromMetadata(ctx)
		_ = ss.SetHeader(metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		err := handler(srv, ss)
		calls.done(ctx, info.FullMethod, requestID, start, err)
		return err
	}
}

func remoteAddr(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return clientKeyUnknown
	}
	return p.Addr.String()
}

func requestIDFromMetadata(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if id := first(md.Get(requestIDMetadataKey)); id != "" {
		return id
	}
	return uuid.NewString()
}
