package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/pairwire/pairwire/internal/adapters/signal"
	"github.com/pairwire/pairwire/internal/app/orch"
	"github.com/pairwire/pairwire/internal/auth"
	"github.com/pairwire/pairwire/internal/config"
)

// AuthMiddleware is the connection gateway's front door: it verifies
// the bearer credential before anything else runs. A rejected request
// never reaches session creation.
func AuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := auth.CredentialFromRequest(c.Request)
		if err == nil {
			var ident any
			ident, err = verifier.Verify(cred)
			if err == nil {
				c.Set(signal.IdentityKey, ident)
				c.Next()
				return
			}
		}

		reason := "invalid_credential"
		switch {
		case errors.Is(err, auth.ErrMissingCredential):
			reason = "missing_credential"
		case errors.Is(err, auth.ErrExpiredCredential):
			reason = "expired_credential"
		}
		log.Warn().Err(err).Str("module", "adapters.http").Str("path", c.Request.URL.Path).Msg("auth rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, verifier auth.Verifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewSignalWSController(o, cfg.ReadLimit, cfg.PingPeriod, cfg.SendBuffer)

	api := r.Group("/api", AuthMiddleware(verifier))

	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Stats())
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
