package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tazhibayda/greetings-service/internal/security"
)

type RouterOptions struct {
	// Limiter guards write endpoints; nil disables rate limiting.
	Limiter Limiter
	// Verifier enables bearer auth on write endpoints when set.
	Verifier security.Verifier
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
	Service  string
}

func NewRouter(h *Handler, o RouterOptions) *gin.Engine {
	if o.Logger == nil {
		o.Logger = zap.L()
	}
	if o.Gatherer == nil {
		o.Gatherer = prometheus.DefaultGatherer
	}
	if o.Service == "" {
		o.Service = "greetings-service"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID(), Tracing(o.Service), Metrics(), AccessLog(o.Logger))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/api/hello", h.Hello)

	var writes []gin.HandlerFunc
	if o.Limiter != nil {
		writes = append(writes, RateLimit(o.Limiter, o.Logger))
	}
	if o.Verifier != nil {
		writes = append(writes, AuthJWT(o.Verifier))
	}
	guard := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writes...), fn)
	}

	api := r.Group("/api/greetings")
	{
		api.POST("", guard(h.CreateGreeting)...)
		api.GET("", h.ListGreetings)
		api.GET("/count", h.Count)
		api.GET("/search", h.Search)
		api.GET("/between", h.Between)
		api.GET("/after", h.After)
		api.GET("/sender/:sender", h.BySender)
		api.GET("/recipient/:recipient", h.ByRecipient)
		api.GET("/latest/:sender", h.Latest)
		api.GET("/:id", h.GetGreeting)
		api.HEAD("/:id", h.HeadGreeting)
		api.PUT("/:id", guard(h.UpdateGreeting)...)
		api.DELETE("/:id", guard(h.DeleteGreeting)...)
	}
	return r
}
