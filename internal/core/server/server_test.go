package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/solatis/jsonforge/internal/components"
	"github.com/solatis/jsonforge/internal/core/api"
	"github.com/solatis/jsonforge/internal/core/auth"
	"github.com/solatis/jsonforge/internal/core/config"
	"github.com/solatis/jsonforge/internal/core/metrics"
	"github.com/solatis/jsonforge/internal/core/rulesfile"
	"github.com/solatis/jsonforge/internal/pipeline"
	"github.com/solatis/jsonforge/internal/rules"
)

const upperRules = `[{"name":"replace","path":"$.name","params":{
	"function":{"name":"upperCase"}}}]`

func newService(t *testing.T, opts ...pipeline.Option) *api.TransformService {
	t.Helper()
	reg, err := rules.NewRegistries(components.Deps{})
	require.NoError(t, err)
	specs, err := rulesfile.Parse([]byte(upperRules), rulesfile.FormatJSON)
	require.NoError(t, err)
	engine, err := rules.NewEngine(reg, specs, opts...)
	require.NoError(t, err)
	svc, err := api.NewTransformService(engine)
	require.NoError(t, err)
	return svc
}

func newKeyedAuthenticator(t *testing.T) (*auth.Authenticator, string) {
	t.Helper()
	key, err := auth.GenerateAPIKey()
	require.NoError(t, err)
	id, _, err := auth.ParseAPIKey(key)
	require.NoError(t, err)
	a, err := auth.NewAuthenticator(map[string]string{id: key})
	require.NoError(t, err)
	return a, key
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:            "127.0.0.1",
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func TestNewGRPCServer_Validation(t *testing.T) {
	a, _ := newKeyedAuthenticator(t)
	_, err := NewGRPCServer(testServerConfig(), nil, a, nil)
	assert.Error(t, err)
	_, err = NewGRPCServer(testServerConfig(), api.NewGRPCHandler(newService(t)), nil, nil)
	assert.Error(t, err)
}

func TestGRPCServer(t *testing.T) {
	a, key := newKeyedAuthenticator(t)
	srv, err := NewGRPCServer(testServerConfig(), api.NewGRPCHandler(newService(t)), a, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	t.Run("health check needs no key", func(t *testing.T) {
		resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(),
			&grpc_health_v1.HealthCheckRequest{Service: api.TransformServiceName})
		require.NoError(t, err)
		assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
	})

	client := api.NewTransformClient(conn)

	t.Run("missing key", func(t *testing.T) {
		_, err := client.Transform(context.Background(), []byte(`{"name":"ada"}`))
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("valid key", func(t *testing.T) {
		ctx := metadata.AppendToOutgoingContext(context.Background(), auth.HeaderName, key)
		out, err := client.Transform(ctx, []byte(`{"name":"ada"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"ADA"}`, string(out))
	})
}

func TestRouter(t *testing.T) {
	a, key := newKeyedAuthenticator(t)
	m, err := metrics.New()
	require.NoError(t, err)
	svc := newService(t, pipeline.WithObserver(m))

	router := NewRouter(Routes{Transform: svc, Metrics: m.Handler()}, a, nil)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		key      string
		want     int
		contains string
	}{
		{"healthz", http.MethodGet, "/healthz", "", "", http.StatusOK, "ok"},
		{"transform without key", http.MethodPost, "/v1/transform", `{"name":"ada"}`, "", http.StatusUnauthorized, ""},
		{"transform with bad key", http.MethodPost, "/v1/transform", `{"name":"ada"}`, "nope", http.StatusUnauthorized, ""},
		{"transform", http.MethodPost, "/v1/transform", `{"name":"ada"}`, key, http.StatusOK, `"ADA"`},
		{"transform wrong method", http.MethodGet, "/v1/transform", "", key, http.StatusMethodNotAllowed, ""},
		{"runs not mounted", http.MethodGet, "/v1/runs/", "", key, http.StatusNotFound, ""},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK, "jsonforge_runs_total"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.key != "" {
				req.Header.Set(auth.HeaderName, tt.key)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestRouter_AuthDisabled(t *testing.T) {
	a, err := auth.NewAuthenticator(nil)
	require.NoError(t, err)
	router := NewRouter(Routes{Transform: newService(t)}, a, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/transform", strings.NewReader(`{"name":"x"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"X"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPServer_ServeAndShutdown(t *testing.T) {
	a, err := auth.NewAuthenticator(nil)
	require.NoError(t, err)
	srv, err := NewHTTPServer(testServerConfig(), NewRouter(Routes{Transform: newService(t)}, a, nil), nil)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestNewHTTPServer_NilHandler(t *testing.T) {
	_, err := NewHTTPServer(testServerConfig(), nil, nil)
	assert.Error(t, err)
}
