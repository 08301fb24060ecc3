// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/capturerelay/internal/config"
)

func TestRun_RequiresConfig(t *testing.T) {
	assert.ErrorIs(t, Run(context.Background(), nil, Options{}), ErrMissingConfig)
}

func TestNewComponents_RejectsBadHosts(t *testing.T) {
	cfg := config.Defaults()
	cfg.Media.AllowedHosts = []string{"https://example.com"}
	_, err := NewComponents(cfg)
	assert.Error(t, err)
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	cfg := config.Defaults()
	cfg.PSN.ClientToken = "client-token"
	holder := config.NewHolder(cfg, config.NewLoader(""))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, holder, Options{Version: "test", Listener: ln, ShutdownTimeout: 2 * time.Second})
	}()

	base := "http://" + ln.Addr().String()
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(base + "/readyz")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ready"])

	resp, err = http.Get(base + "/captures/preview?url=" + "http%3A%2F%2F169.254.169.254%2F")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestRun_NotReadyWithoutClientToken(t *testing.T) {
	cfg := config.Defaults()
	cfg.PSN.ClientToken = ""
	holder := config.NewHolder(cfg, config.NewLoader(""))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, holder, Options{Listener: ln}) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/readyz")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	cancel()
	<-done
}
