package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateClientAcceptsSelfSignedCertificates(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	resp, err := NewCandidateClient().Get(server.URL)
	require.NoError(t, err)
	defer CloseBody(resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBaselineClientVerifiesCertificates(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewBaselineClient(5 * time.Second).Get(server.URL)
	if resp != nil {
		CloseBody(resp)
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "certificate")
}

func TestCallbackClientBlocksPrivateAddresses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := NewCallbackClient(5*time.Second, true).Post(server.URL, "application/json", nil)
	if resp != nil {
		CloseBody(resp)
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked destination")

	resp, err = NewCallbackClient(5*time.Second, false).Post(server.URL, "application/json", nil)
	require.NoError(t, err)
	defer CloseBody(resp)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCallbackClientDoesNotFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer server.Close()

	resp, err := NewCallbackClient(5*time.Second, false).Get(server.URL)
	require.NoError(t, err)
	defer CloseBody(resp)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestRedirectLimiting(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(Config{Timeout: 5 * time.Second, MaxRedirects: 3})
	resp, err := client.Get(server.URL)
	if resp != nil {
		CloseBody(resp)
	}

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 3 redirects")
	assert.Equal(t, int32(3), hits.Load())
}

func TestRequestContextBoundsCandidateFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	resp, err := NewCandidateClient().Do(req)
	if resp != nil {
		CloseBody(resp)
	}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.1.1", true},
		{"0.0.0.0", true},
		{"::1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
	}

	for _, tt := range tests {
		ip := net.ParseIP(tt.ip)
		require.NotNil(t, ip, tt.ip)
		assert.Equal(t, tt.expected, isPrivateIP(ip), tt.ip)
	}
}

func TestCloseBodyNil(t *testing.T) {
	assert.NotPanics(t, func() {
		CloseBody(nil)
		CloseBody(&http.Response{})
	})
}
