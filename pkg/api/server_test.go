package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer_Addr(t *testing.T) {
	server, _ := setupTestServer(t)
	server.config.Bind = "127.0.0.1"
	server.config.Port = 9200
	assert.Equal(t, "127.0.0.1:9200", server.Addr())
}

func TestServer_Serve(t *testing.T) {
	server, _ := setupTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, ln)
	}()

	url := fmt.Sprintf("http://%s/api/v1/health", ln.Addr())
	req, err := http.NewRequest("GET", url, nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.DefaultClient.Do(req)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_ListenAndServeBadAddress(t *testing.T) {
	server, _ := setupTestServer(t)
	server.config.Bind = "256.0.0.1"

	err := server.ListenAndServe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestServerFactory(t *testing.T) {
	starter := NewServerFactory().CreateServerStarter(zap.NewNop())
	require.NotNil(t, starter)
	_, ok := starter.(*DefaultServerStarter)
	assert.True(t, ok)

	assert.NotNil(t, NewServerFactory().CreateServerStarter(nil))
}
