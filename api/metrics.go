package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	// http_request_duration_seconds by method, route and status
	HTTPRequestDuration *prometheus.HistogramVec

	// adventcal_sign_ins_total
	SignInsTotal prometheus.Counter

	// adventcal_calendars_created_total
	CalendarsCreatedTotal prometheus.Counter

	// adventcal_calendars_shared_total
	CalendarsSharedTotal prometheus.Counter

	// adventcal_doors_updated_total by content type
	DoorsUpdatedTotal *prometheus.CounterVec

	// adventcal_doors_unlocked_total by day
	DoorsUnlockedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SignInsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adventcal_sign_ins_total",
			Help: "Anonymous identities issued",
		}),
		CalendarsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adventcal_calendars_created_total",
			Help: "Calendars created",
		}),
		CalendarsSharedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adventcal_calendars_shared_total",
			Help: "Accepted calendar share requests",
		}),
		DoorsUpdatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adventcal_doors_updated_total",
				Help: "Door content updates by content type",
			},
			[]string{"content_type"},
		),
		DoorsUnlockedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adventcal_doors_unlocked_total",
				Help: "First-time door unlocks by day",
			},
			[]string{"day"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestDuration,
		m.SignInsTotal,
		m.CalendarsCreatedTotal,
		m.CalendarsSharedTotal,
		m.DoorsUpdatedTotal,
		m.DoorsUnlockedTotal,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		Registry:          m.Registry,
		EnableOpenMetrics: true,
	}))
}

// Middleware records the duration of every request, labelled by route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// The recorders below accept a nil receiver so handlers can run without metrics.

func (m *Metrics) recordSignIn() {
	if m != nil {
		m.SignInsTotal.Inc()
	}
}

func (m *Metrics) recordCalendarCreated() {
	if m != nil {
		m.CalendarsCreatedTotal.Inc()
	}
}

func (m *Metrics) recordCalendarShared() {
	if m != nil {
		m.CalendarsSharedTotal.Inc()
	}
}

func (m *Metrics) recordDoorUpdated(contentType string) {
	if m != nil {
		m.DoorsUpdatedTotal.WithLabelValues(contentType).Inc()
	}
}

func (m *Metrics) recordDoorUnlocked(day int) {
	if m != nil {
		m.DoorsUnlockedTotal.WithLabelValues(strconv.Itoa(day)).Inc()
	}
}
