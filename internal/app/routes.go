package app

import (
	"context"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/komida-linebot-go/internal/config"
	"github.com/garyellow/komida-linebot-go/internal/sentry"
)

const repositoryURL = "https://github.com/garyellow/komida-linebot-go"

func (a *Application) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/", redirectToRepository)
	router.Match([]string{http.MethodGet, http.MethodHead}, "/livez", livenessCheck)
	router.Match([]string{http.MethodGet, http.MethodHead}, "/readyz", a.readinessCheck)
	router.POST("/webhook", a.webhookHandler.Handle)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})))

	return router
}

func redirectToRepository(c *gin.Context) {
	c.Redirect(http.StatusFound, repositoryURL)
}

// livenessCheck only reports that the process is serving.
func livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessCheck reports whether menus can be looked up.
func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	body := gin.H{
		"status":   "ready",
		"database": "connected",
	}
	if count, err := a.store.CountItems(ctx); err == nil {
		body["items"] = count
	}
	if a.snapshots != nil {
		body["snapshot_etag"] = a.snapshots.CurrentETag()
	}
	c.JSON(http.StatusOK, body)
}
