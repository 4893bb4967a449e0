package web

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/ports"
	"github.com/mailsift/mailsift/internal/stats"
	"go.uber.org/zap"
)

// Server serves the sender ledger and run stats over HTTP: an HTML
// dashboard for humans and a small JSON API. It reads the files on
// every request, so a pipeline run in another process shows up on the
// next refresh.
type Server struct {
	ledger       ports.Ledger
	statsManager *stats.Manager
	logger       *zap.Logger
	topSenders   int

	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates a new web server. topSenders caps the dashboard
// table and is the default for /api/senders.
func NewServer(
	listenAddr string,
	topSenders int,
	ledger ports.Ledger,
	statsManager *stats.Manager,
	logger *zap.Logger,
	debug bool,
) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		ledger:       ledger,
		statsManager: statsManager,
		logger:       logger,
		topSenders:   topSenders,
		router:       router,
		httpServer: &http.Server{
			Addr:    listenAddr,
			Handler: router,
		},
	}

	router.SetHTMLTemplate(dashboardTemplate)
	router.GET("/", s.handleDashboard)
	router.GET("/api/stats", s.handleStats)
	router.GET("/api/senders", s.handleSenders)
	router.GET("/healthz", s.handleHealthz)

	return s
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

type senderView struct {
	Address        string `json:"address"`
	LastContact    string `json:"last_contact_date"`
	MessageCount   int64  `json:"message_count"`
	AdCount        int64  `json:"advertisement_count"`
	UnsubscribeURL string `json:"unsubscribe_url,omitempty"`
}

type dashboardView struct {
	UniqueSenders int
	TotalMessages int64
	TotalAds      int64
	AdRatePercent string
	LastRun       string
	LastRunID     string
	TopSenders    []senderView
}

func (s *Server) handleDashboard(c *gin.Context) {
	records, err := s.ledger.Load(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to load ledger for dashboard", zap.Error(err))
		c.String(http.StatusInternalServerError, "ledger unavailable")
		return
	}

	fileStats, err := s.statsManager.Read(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to read stats for dashboard", zap.Error(err))
		c.String(http.StatusInternalServerError, "stats unavailable")
		return
	}

	live := liveStats(records, fileStats)

	view := dashboardView{
		UniqueSenders: live.UniqueSenders,
		TotalMessages: live.TotalMessagesProcessed,
		TotalAds:      live.TotalAdvertisements,
		AdRatePercent: strconv.FormatFloat(live.AdvertisementRate*100, 'f', 1, 64),
		LastRun:       "never",
		LastRunID:     live.LastRunID,
		TopSenders:    topSendersFrom(records, s.topSenders),
	}
	if !live.LastRun.IsZero() {
		view.LastRun = live.LastRun.Format("2006-01-02 15:04:05 MST")
	}

	c.HTML(http.StatusOK, "dashboard", view)
}

func (s *Server) handleStats(c *gin.Context) {
	records, err := s.ledger.Load(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to load ledger for stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger unavailable"})
		return
	}

	fileStats, err := s.statsManager.Read(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to read stats file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}

	c.JSON(http.StatusOK, liveStats(records, fileStats))
}

func (s *Server) handleSenders(c *gin.Context) {
	limit := s.topSenders
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := s.ledger.Load(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to load ledger for senders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"senders": topSendersFrom(records, limit)})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// liveStats recomputes the totals from the ledger on disk so the API
// reflects the current file even if the stats file is stale, keeping
// the run metadata the pipeline recorded.
func liveStats(records core.SenderMap, fileStats *stats.Stats) *stats.Stats {
	totalMessages := records.TotalMessages()
	totalAds := records.TotalAds()

	rate := 0.0
	if totalMessages > 0 {
		rate = float64(totalAds) / float64(totalMessages)
	}

	return &stats.Stats{
		TotalMessagesProcessed: totalMessages,
		TotalAdvertisements:    totalAds,
		UniqueSenders:          len(records),
		AdvertisementRate:      rate,
		LastRun:                fileStats.LastRun,
		LastRunID:              fileStats.LastRunID,
		LastSummary:            fileStats.LastSummary,
	}
}

func topSendersFrom(records core.SenderMap, limit int) []senderView {
	views := make([]senderView, 0, len(records))
	for _, rec := range records {
		views = append(views, senderView{
			Address:        rec.Address,
			LastContact:    rec.LastContact.Format("2006-01-02"),
			MessageCount:   rec.MessageCount,
			AdCount:        rec.AdCount,
			UnsubscribeURL: rec.UnsubscribeURL,
		})
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].MessageCount != views[j].MessageCount {
			return views[i].MessageCount > views[j].MessageCount
		}
		return views[i].Address < views[j].Address
	})

	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views
}
