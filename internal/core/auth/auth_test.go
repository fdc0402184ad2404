package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newKey(t *testing.T) (string, string) {
	t.Helper()
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	id, _, err := ParseAPIKey(key)
	require.NoError(t, err)
	return id, key
}

func TestParseAPIKey(t *testing.T) {
	valid := FormatAPIKey(strings.Repeat("a", 32), strings.Repeat("0", 64))
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", valid, false},
		{"wrong prefix", "tk" + valid[2:], true},
		{"wrong version", strings.Replace(valid, "v1", "v2", 1), true},
		{"short id", FormatAPIKey("abc", strings.Repeat("0", 64)), true},
		{"short random", FormatAPIKey(strings.Repeat("a", 32), "00"), true},
		{"upper hex", FormatAPIKey(strings.Repeat("A", 32), strings.Repeat("0", 64)), true},
		{"extra part", valid + "-x", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseAPIKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKeyFormat)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	_, a := newKey(t)
	_, b := newKey(t)
	assert.NotEqual(t, a, b)
}

func TestAuthenticate(t *testing.T) {
	id, key := newKey(t)
	otherID, otherKey := newKey(t)
	a, err := NewAuthenticator(map[string]string{id: key})
	require.NoError(t, err)
	assert.True(t, a.Enabled())

	got, err := a.Authenticate(key)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = a.Authenticate("")
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = a.Authenticate("garbage")
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)

	_, err = a.Authenticate(otherKey)
	assert.ErrorIs(t, err, ErrUnknownKey)

	forged := FormatAPIKey(id, strings.Repeat("f", 64))
	_, err = a.Authenticate(forged)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewAuthenticator(map[string]string{otherID: key})
	assert.Error(t, err, "mismatched key ID")
}

func TestUnaryInterceptor(t *testing.T) {
	id, key := newKey(t)
	a, err := NewAuthenticator(map[string]string{id: key})
	require.NoError(t, err)

	interceptor := a.UnaryInterceptor()
	handler := func(ctx context.Context, req any) (any, error) {
		return KeyIDFromContext(ctx), nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/jsonforge.transform.v1.TransformService/Transform"}

	tests := []struct {
		name     string
		ctx      context.Context
		wantCode codes.Code
	}{
		{"no metadata", context.Background(), codes.Unauthenticated},
		{"missing key", metadata.NewIncomingContext(context.Background(), metadata.Pairs()), codes.Unauthenticated},
		{"bad key", metadata.NewIncomingContext(context.Background(), metadata.Pairs(HeaderName, "nope")), codes.Unauthenticated},
		{"valid key", metadata.NewIncomingContext(context.Background(), metadata.Pairs(HeaderName, key)), codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := interceptor(tt.ctx, nil, info, handler)
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, id, resp)
			}
		})
	}

	t.Run("health check is open", func(t *testing.T) {
		_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, handler)
		assert.NoError(t, err)
	})

	t.Run("unknown id looks invalid", func(t *testing.T) {
		_, other := newKey(t)
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(HeaderName, other))
		_, err := interceptor(ctx, nil, info, handler)
		assert.Equal(t, ErrInvalidKey.Error(), status.Convert(err).Message())
	})
}

func TestMiddleware(t *testing.T) {
	id, key := newKey(t)
	a, err := NewAuthenticator(map[string]string{id: key})
	require.NoError(t, err)

	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(KeyIDFromContext(r.Context())))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/transform", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/transform", nil)
	req.Header.Set(HeaderName, key)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, rec.Body.String())
}

func TestDisabledAuthenticator(t *testing.T) {
	a, err := NewAuthenticator(nil)
	require.NoError(t, err)
	assert.False(t, a.Enabled())

	rec := httptest.NewRecorder()
	a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err = a.UnaryInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{}, func(context.Context, any) (any, error) {
		return nil, nil
	})
	assert.False(t, errors.Is(err, ErrMissingKey))
	assert.NoError(t, err)
}
