// Package server exposes a loaded chart over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beetlebugorg/seacharts/internal/observability"
	"github.com/beetlebugorg/seacharts/pkg/enc"
)

// Server serves one chart.
type Server struct {
	chart    *enc.ENC
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// New creates a server for chart. Metrics are served from gatherer; a nil
// gatherer uses the default registry.
func New(chart *enc.ENC, logger *slog.Logger, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{chart: chart, logger: observability.OrDefault(logger), gatherer: gatherer}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	r.GET("/healthz", s.health)
	r.GET("/layers", s.layers)
	r.GET("/layers/:name", s.layer)
	r.GET("/obstacles", s.obstacles)
	r.GET("/hazards", s.hazards)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	return r
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type layerSummary struct {
	Name     string `json:"name"`
	Theme    string `json:"theme"`
	Features int    `json:"features"`
}

func (s *Server) layers(c *gin.Context) {
	var out []layerSummary
	for _, col := range s.chart.Collections() {
		for _, name := range enc.SupportedCategories() {
			n := len(col.Category(name))
			if n == 0 {
				continue
			}
			out = append(out, layerSummary{Name: name, Theme: col.Name(), Features: n})
		}
	}
	b := s.chart.Window()
	c.JSON(http.StatusOK, gin.H{
		"projection": enc.SupportedProjection,
		"window":     [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]},
		"regions":    s.chart.Regions(),
		"layers":     out,
	})
}

// layer serves a theme or category as GeoJSON.
func (s *Server) layer(c *gin.Context) {
	name := c.Param("name")
	col, ok := s.chart.Collection(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown layer " + strconv.Quote(name)})
		return
	}
	feats := col.Features()
	if !strings.EqualFold(name, col.Name()) {
		feats = col.Category(name)
	}
	writeGeoJSON(c, enc.GeoJSON(feats))
}

func (s *Server) obstacles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"obstacles": s.chart.StaticObstacles()})
}

func (s *Server) hazards(c *gin.Context) {
	depth, err := strconv.ParseFloat(c.DefaultQuery("depth", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "depth must be a number"})
		return
	}
	writeGeoJSON(c, enc.GeoJSON(s.chart.HazardousAreas(depth)))
}

type jsonMarshaler interface {
	MarshalJSON() ([]byte, error)
}

func writeGeoJSON(c *gin.Context, v jsonMarshaler) {
	data, err := v.MarshalJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}
