package grpc

import (
	"context"

	"github.com/arloliu/tracebind"
	"google.golang.org/grpc"
)

// UnaryClientInterceptor exposes the current correlation context as baggage
// so that [ClientHandler] injects it into the outgoing metadata.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(tracebind.ContextWithCorrelationBaggage(ctx), method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor is the streaming variant of [UnaryClientInterceptor].
func StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(tracebind.ContextWithCorrelationBaggage(ctx), desc, cc, method, opts...)
	}
}

// UnaryServerInterceptor merges the baggage extracted by [ServerHandler] into
// the correlation context seen by the handler.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(tracebind.ContextWithBaggageCorrelation(ctx), req)
	}
}

// StreamServerInterceptor is the streaming variant of [UnaryServerInterceptor].
func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return handler(srv, &correlatedStream{ServerStream: ss, ctx: tracebind.ContextWithBaggageCorrelation(ss.Context())})
	}
}

type correlatedStream struct {
	grpc.ServerStream

	ctx context.Context
}

func (s *correlatedStream) Context() context.Context { return s.ctx }
