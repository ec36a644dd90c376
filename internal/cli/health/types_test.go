package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"healthy","data":{"service":"fsbroker","uptime":"3s","uptime_sec":3}}`))
		case "/health/ready":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","data":{"backend":"s3"},"error":"bucket gone"}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	live, code, err := Get[Liveness](ctx, nil, srv.URL+"/", "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "fsbroker", live.Data.Service)
	assert.Equal(t, int64(3), live.Data.UptimeSec)

	ready, code, err := Get[Readiness](ctx, srv.Client(), srv.URL, "/health/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "s3", ready.Data.Backend)
	assert.Equal(t, "bucket gone", ready.Error)

	_, _, err = Get[Liveness](ctx, nil, srv.URL, "/other")
	assert.Error(t, err)
}
