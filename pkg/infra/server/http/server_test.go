package http

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpopts "github.com/kart-io/catalog-chat/pkg/options/http"
)

func testOptions() *httpopts.Options {
	opts := httpopts.NewOptions()
	opts.Addr = "127.0.0.1:0"
	opts.Mode = gin.TestMode
	return opts
}

func TestServerServesRoutes(t *testing.T) {
	var hits atomic.Int32
	s := NewServer(testOptions(), func(c *gin.Context) {
		hits.Add(1)
		c.Next()
	})
	s.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + s.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, int32(1), hits.Load())

	resp, err = client.Get("http://" + s.Addr() + "/missing")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerStartBindError(t *testing.T) {
	first := NewServer(testOptions())
	require.NoError(t, first.Start(context.Background()))
	defer func() { _ = first.Stop(context.Background()) }()

	opts := testOptions()
	opts.Addr = first.Addr()
	second := NewServer(opts)
	assert.Error(t, second.Start(context.Background()))
}

func TestServerStopBeforeStart(t *testing.T) {
	s := NewServer(nil)
	assert.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, "http[gin]", s.Name())
}
