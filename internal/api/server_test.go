package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/jobs"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/scanner"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/notify"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/report"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/similarity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	mu       sync.Mutex
	requests []scanner.Request
	notified []notify.Notifier
	run      func(ctx context.Context, req scanner.Request) ([]report.Record, error)
}

func (f *fakeRunner) RunAndDeliver(ctx context.Context, req scanner.Request, n notify.Notifier) ([]report.Record, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.notified = append(f.notified, n)
	f.mu.Unlock()
	if f.run != nil {
		return f.run(ctx, req)
	}
	return []report.Record{{
		Domain:     "examp1e.com",
		ARecords:   []string{"198.51.100.7"},
		MXRecords:  []string{},
		NSRecords:  []string{},
		Similarity: similarity.Score{Value: 87.5, Computed: true},
	}}, nil
}

func (f *fakeRunner) last() (scanner.Request, notify.Notifier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1], f.notified[len(f.notified)-1]
}

func newTestServer(t *testing.T, runner Runner, mutate ...func(*config.Config)) (*Server, *gin.Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.DefaultConfig()
	cfg.Security.RateLimit.RequestsPerSecond = 0
	for _, m := range mutate {
		m(cfg)
	}

	s := NewServer(ctx, runner, jobs.NewTracker(time.Hour), http.DefaultClient, nil, "test")
	return s, s.Router(*cfg)
}

func do(router http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestScanAccepted(t *testing.T) {
	runner := &fakeRunner{}
	s, router := newTestServer(t, runner)

	w := do(router, http.MethodPost, "/api/v1/scans", `{"domain":"example.com","callback_url":"https://hooks.example.net/in"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Success", resp.Result)
	require.NotEmpty(t, resp.ScanID)

	s.Wait()

	req, n := runner.last()
	assert.Equal(t, resp.ScanID, req.ScanID)
	assert.Equal(t, "example.com", req.Domain)
	assert.Equal(t, "style", req.Mode)
	assert.True(t, req.SimilarityCheck, "style_check defaults to true when omitted")
	assert.Equal(t, "api", req.Source)

	hook, ok := n.(*notify.Webhook)
	require.True(t, ok)
	assert.Equal(t, "https://hooks.example.net/in", hook.URL)

	w = do(router, http.MethodGet, "/api/v1/scans/"+resp.ScanID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var scan jobs.Scan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	assert.Equal(t, jobs.StatusCompleted, scan.Status)
	assert.Equal(t, 1, scan.Records)
}

func TestScanLegacyPath(t *testing.T) {
	runner := &fakeRunner{}
	s, router := newTestServer(t, runner)

	w := do(router, http.MethodPost, "/scan/", `{"domain":"example.com","callback_url":"http://hooks.example.net/","style":"structural","style_check":false}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	s.Wait()

	req, _ := runner.last()
	assert.Equal(t, "structural", req.Mode)
	assert.False(t, req.SimilarityCheck, "an explicit false is honoured")
}

func TestScanBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `domain=example.com`},
		{"missing domain", `{"callback_url":"https://hooks.example.net/"}`},
		{"unknown style", `{"domain":"example.com","callback_url":"https://hooks.example.net/","style":"visual"}`},
		{"missing callback", `{"domain":"example.com"}`},
		{"callback scheme", `{"domain":"example.com","callback_url":"ftp://hooks.example.net/"}`},
		{"callback host", `{"domain":"example.com","callback_url":"https:///path"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			_, router := newTestServer(t, runner)

			w := do(router, http.MethodPost, "/api/v1/scans", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, runner.requests)
		})
	}
}

func TestScanWaitReturnsRecords(t *testing.T) {
	runner := &fakeRunner{}
	_, router := newTestServer(t, runner)

	w := do(router, http.MethodPost, "/api/v1/scans?wait=true", `{"domain":"example.com","style":"similarity"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result  string                   `json:"result"`
		ScanID  string                   `json:"scan_id"`
		Records []map[string]interface{} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Success", resp.Result)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "examp1e.com", resp.Records[0]["domain"])
	assert.Equal(t, 87.5, resp.Records[0]["similarity"])

	_, n := runner.last()
	assert.Nil(t, n, "no callback without callback_url")
}

func TestCancelScan(t *testing.T) {
	started := make(chan struct{})
	runner := &fakeRunner{run: func(ctx context.Context, _ scanner.Request) ([]report.Record, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	s, router := newTestServer(t, runner)

	w := do(router, http.MethodPost, "/api/v1/scans", `{"domain":"example.com","callback_url":"https://hooks.example.net/"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	<-started
	w = do(router, http.MethodDelete, "/api/v1/scans/"+resp.ScanID, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	s.Wait()

	w = do(router, http.MethodGet, "/api/v1/scans/"+resp.ScanID, "")
	var scan jobs.Scan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	assert.Equal(t, jobs.StatusCancelled, scan.Status)

	w = do(router, http.MethodDelete, "/api/v1/scans/"+resp.ScanID, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNewerScanSupersedesRunningOne(t *testing.T) {
	var once sync.Once
	firstStarted := make(chan struct{})
	runner := &fakeRunner{run: func(ctx context.Context, _ scanner.Request) ([]report.Record, error) {
		first := false
		once.Do(func() { first = true; close(firstStarted) })
		if first {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []report.Record{}, nil
	}}
	s, router := newTestServer(t, runner)

	body := `{"domain":"example.com","callback_url":"https://hooks.example.net/"}`
	w := do(router, http.MethodPost, "/api/v1/scans", body)
	var first ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	<-firstStarted

	w = do(router, http.MethodPost, "/api/v1/scans", body)
	var second ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	s.Wait()

	scan, err := s.tracker.Get(first.ScanID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCancelled, scan.Status)

	scan, err = s.tracker.Get(second.ScanID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, scan.Status)
}

func TestUnknownScan(t *testing.T) {
	_, router := newTestServer(t, &fakeRunner{})

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/v1/scans/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodDelete, "/api/v1/scans/nope", "").Code)
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t, &fakeRunner{})

	w := do(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["healthy"])
	assert.Equal(t, "test", body["version"])
}

func TestAPIKeyRequired(t *testing.T) {
	_, router := newTestServer(t, &fakeRunner{}, func(c *config.Config) {
		c.Security.APIKey = "s3cret"
	})
	body := `{"domain":"example.com","callback_url":"https://hooks.example.net/"}`

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/scans", body).Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/scan/", body).Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/scans", body, "Authorization", "Token s3cret").Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/v1/scans", body, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusAccepted, do(router, http.MethodPost, "/api/v1/scans", body, "Authorization", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
}
