package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/hostbay/sitehost-api/internal/handler"
	"github.com/hostbay/sitehost-api/internal/middleware"
)

// Handler registers its routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	CORSConfig     middleware.CORSConfig
	MetricsPrefix  string
}

type Router struct {
	engine  *gin.Engine
	config  Config
	metrics *routerMetrics

	authH         Handler
	siteH         Handler
	subscriptionH Handler
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func initRouterMetrics(prefix string) *routerMetrics {
	if prefix == "" {
		prefix = "sitehost"
	}
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_request_duration_seconds", prefix),
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_requests_total", prefix),
			Help: "HTTP requests processed",
		}, []string{"method", "path", "status"}),
	}
}

func NewRouter(authH, siteH, subscriptionH Handler, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:        engine,
		config:        config,
		metrics:       initRouterMetrics(config.MetricsPrefix),
		authH:         authH,
		siteH:         siteH,
		subscriptionH: subscriptionH,
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.BodyLimit(middleware.MaxBodySize),
		middleware.Timeout(config.RequestTimeout),
		rateLimiter.RateLimit(),
		r.metricsMiddleware(),
	)

	return r
}

// Setup registers all routes.
func (r *Router) Setup() {
	r.engine.GET("/health", handler.Health())
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public surface consumed by the render layer.
	public := r.engine.Group("/")
	r.siteH.RegisterRoutes(public)

	api := r.engine.Group("/api/v1")
	r.authH.RegisterRoutes(api)
	r.subscriptionH.RegisterRoutes(api)
}

// Engine exposes the underlying gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := fmt.Sprintf("%d", c.Writer.Status())

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
