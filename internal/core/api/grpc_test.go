package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/solatis/jsonforge/internal/types"
)

func dialTransform(t *testing.T, svc *TransformService, opts ...grpc.ServerOption) *TransformClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(opts...)
	RegisterTransformServer(srv, NewGRPCHandler(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewTransformClient(conn)
}

func TestGRPC_Transform(t *testing.T) {
	client := dialTransform(t, newTestService(t, "ABORT"))

	var header metadata.MD
	out, err := client.Transform(context.Background(), []byte(`{"id":"1"}`), grpc.Header(&header))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","seen":"yes"}`, string(out))

	ids := header.Get(RunIDHeader)
	require.Len(t, ids, 1)
	_, err = types.ParseRunID(ids[0])
	assert.NoError(t, err)
}

func TestGRPC_TransformErrors(t *testing.T) {
	client := dialTransform(t, newTestService(t, "ABORT", WithMaxDocumentSize(16)))

	tests := []struct {
		name  string
		input string
		want  codes.Code
	}{
		{"aborted", `{}`, codes.Aborted},
		{"malformed", `{`, codes.InvalidArgument},
		{"too large", `{"id":"0123456789abcdef"}`, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header metadata.MD
			_, err := client.Transform(context.Background(), []byte(tt.input), grpc.Header(&header))
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
			assert.Len(t, header.Get(RunIDHeader), 1)
		})
	}
}

func TestGRPC_InterceptorSeesMethod(t *testing.T) {
	var seen string
	intercept := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return handler(ctx, req)
	}
	client := dialTransform(t, newTestService(t, "ABORT"), grpc.UnaryInterceptor(intercept))

	_, err := client.Transform(context.Background(), []byte(`{"id":"1"}`))
	require.NoError(t, err)
	assert.Equal(t, TransformMethod, seen)
}
