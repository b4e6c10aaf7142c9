// Package grpc instruments gRPC clients and servers with tracebind spans.
//
// The stats handlers are built on otelgrpc and report through the tracebind
// default provider. The interceptors carry the correlation context across
// the call as W3C baggage.
//
// # gRPC Server
//
//	server := grpc.NewServer(
//	    grpc.StatsHandler(tbgrpc.ServerHandler()),
//	    grpc.ChainUnaryInterceptor(tbgrpc.UnaryServerInterceptor()),
//	)
//
// # gRPC Client
//
//	conn, err := grpc.NewClient(target,
//	    grpc.WithStatsHandler(tbgrpc.ClientHandler()),
//	    grpc.WithChainUnaryInterceptor(tbgrpc.UnaryClientInterceptor()),
//	)
package grpc
