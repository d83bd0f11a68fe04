// Package api exposes scans over HTTP. Scans run in the background, detached
// from the request, and report to the caller's callback URL.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/jobs"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/logger"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/scanner"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/notify"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/report"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/similarity"
)

// Runner executes a scan and delivers its report.
type Runner interface {
	RunAndDeliver(ctx context.Context, req scanner.Request, n notify.Notifier) ([]report.Record, error)
}

// ScanRequest is the body accepted by the scan endpoints.
type ScanRequest struct {
	Domain      string `json:"domain" binding:"required"`
	CallbackURL string `json:"callback_url"`
	Style       string `json:"style"`
	// StyleCheck defaults to true only when omitted.
	StyleCheck *bool `json:"style_check"`
}

type ScanResponse struct {
	Result string `json:"result"`
	ScanID string `json:"scan_id"`
}

type Server struct {
	ctx      context.Context
	runner   Runner
	tracker  *jobs.Tracker
	callback *http.Client
	logger   *logger.Logger
	version  string
	wg       sync.WaitGroup
}

// NewServer creates the API server. Background scans derive from ctx, so
// cancelling it stops them all.
func NewServer(ctx context.Context, runner Runner, tracker *jobs.Tracker, callback *http.Client, log *logger.Logger, version string) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		ctx:      ctx,
		runner:   runner,
		tracker:  tracker,
		callback: callback,
		logger:   log.WithComponent("api"),
		version:  version,
	}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router(cfg config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware(s.logger))
	if cfg.Server.EnableCORS {
		router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	}

	router.GET("/health", s.handleHealth)

	auth := AuthMiddleware(cfg.Security.APIKey, s.logger)
	limit := RateLimitMiddleware(s.ctx, cfg.Security.RateLimit)

	router.POST("/scan/", auth, limit, s.handleScan)

	v1 := router.Group("/api/v1")
	v1.Use(auth, limit)
	{
		v1.POST("/scans", s.handleScan)
		v1.GET("/scans/:id", s.handleGetScan)
		v1.DELETE("/scans/:id", s.handleCancelScan)
	}

	return router
}

// Wait blocks until every background scan has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"healthy":      true,
		"active_scans": s.tracker.Active(),
		"timestamp":    time.Now().Unix(),
		"version":      s.version,
	})
}

func (s *Server) handleScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warnw("Invalid request body",
			"error", err,
			"ip", c.ClientIP(),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Style == "" {
		req.Style = string(similarity.ModeStyle)
	}
	if _, err := similarity.ParseMode(req.Style); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wait, _ := strconv.ParseBool(c.Query("wait"))

	var notifier notify.Notifier
	switch {
	case req.CallbackURL != "":
		if err := validateCallback(req.CallbackURL); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		notifier = notify.NewWebhook(req.CallbackURL, s.callback)
	case !wait:
		c.JSON(http.StatusBadRequest, gin.H{"error": "callback_url is required unless wait=true"})
		return
	}

	styleCheck := true
	if req.StyleCheck != nil {
		styleCheck = *req.StyleCheck
	}

	parent := s.ctx
	if wait {
		parent = c.Request.Context()
	}
	ctx, id := s.tracker.Start(parent, req.Domain, req.CallbackURL)

	scanReq := scanner.Request{
		ScanID:          id,
		Domain:          req.Domain,
		Mode:            req.Style,
		SimilarityCheck: styleCheck,
		Source:          "api",
	}

	s.logger.Infow("Scan accepted",
		"scan_id", id,
		"domain", req.Domain,
		"style", req.Style,
		"style_check", styleCheck,
		"wait", wait,
		"ip", c.ClientIP(),
	)

	if wait {
		records, err := s.execute(ctx, scanReq, notifier)
		if err != nil && records == nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "scan_id": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": "Success", "scan_id": id, "records": nonNil(records)})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.execute(ctx, scanReq, notifier)
	}()

	c.JSON(http.StatusAccepted, ScanResponse{Result: "Success", ScanID: id})
}

func (s *Server) execute(ctx context.Context, req scanner.Request, n notify.Notifier) (records []report.Record, err error) {
	log := s.logger.WithScanID(req.ScanID)
	defer func() {
		if r := recover(); r != nil {
			log.LogPanic(ctx, r, "scan")
			err = errors.New("scan panicked")
		}
		s.tracker.Finish(req.ScanID, len(records), err)
	}()

	s.tracker.MarkRunning(req.ScanID)
	records, err = s.runner.RunAndDeliver(ctx, req, n)
	if err != nil {
		log.Warnw("Scan finished with error", "domain", req.Domain, "error", err)
	}
	return records, err
}

func (s *Server) handleGetScan(c *gin.Context) {
	scan, err := s.tracker.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (s *Server) handleCancelScan(c *gin.Context) {
	id := c.Param("id")
	switch err := s.tracker.Cancel(id); {
	case errors.Is(err, jobs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, jobs.ErrFinished):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Infow("Scan cancelled", "scan_id", id, "ip", c.ClientIP())
		c.JSON(http.StatusAccepted, gin.H{"result": "Cancelled", "scan_id": id})
	}
}

func validateCallback(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid callback_url")
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return errors.New("callback_url must be http or https")
	}
	if u.Hostname() == "" {
		return errors.New("callback_url has no host")
	}
	return nil
}

func nonNil(records []report.Record) []report.Record {
	if records == nil {
		return []report.Record{}
	}
	return records
}
