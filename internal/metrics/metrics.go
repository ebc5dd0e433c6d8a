package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "music_ws_connections",
		Help: "Current number of active realtime sessions",
	})
	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "music_events_published_total",
		Help: "Realtime events queued for delivery, by type",
	}, []string{"type"})
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "music_events_dropped_total",
		Help: "Realtime events dropped because a session was too slow",
	})
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "music_chat_messages_total",
		Help: "Chat messages persisted",
	})
	PresenceTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "music_presence_transitions_total",
		Help: "Presence status changes, by new status",
	}, []string{"status"})
	UploadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "music_media_upload_duration_seconds",
		Help:    "Media gateway upload latency",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"outcome"})
	UploadBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "music_media_upload_breaker_state",
		Help: "Media gateway circuit breaker state (0 closed, 1 half-open, 2 open)",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WSConnections, EventsPublished, EventsDropped, MessagesSent,
		PresenceTransitions, UploadDuration, UploadBreakerState, HTTPRequestsTotal, HTTPRequestDuration,
	)
}

// GinMiddleware records request counts and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HTTPRequestsTotal.With(labels).Inc()
		HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
