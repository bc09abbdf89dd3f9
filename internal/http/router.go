// Package httpapi wires the Gin transport to the application services and
// cross-cutting middleware.
//
// Middleware order:
//  1. OpenTelemetry tracing
//  2. RequestID
//  3. Structured logging (credentials masked)
//  4. Recovery
//  5. Body size limit
//  6. Gzip
//  7. Metrics
//  8. Owner identity
//  9. Rate limiter (per owner/IP)
//  10. CORS and security headers
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/paristimemachine/galligeo/internal/config"
	"github.com/paristimemachine/galligeo/internal/gateway"
	"github.com/paristimemachine/galligeo/internal/http/handlers"
	"github.com/paristimemachine/galligeo/internal/http/middleware"
	"github.com/paristimemachine/galligeo/internal/services"
	"github.com/paristimemachine/galligeo/internal/session"
)

// Deps carries everything the router needs injected.
type Deps struct {
	DB      *gorm.DB
	Session session.Session
	Remote  services.RemoteStore
	Compute services.ComputeSubmitter

	// Sink receives mutation signals for snapshot debouncing; nil disables.
	Sink services.MutationSink

	// Snapshots lets main share one snapshot service (and session id) with
	// the scheduler; nil builds a fresh one.
	Snapshots *services.SnapshotService

	// Backup lets accepted settings writes toggle recurring snapshot
	// capture; nil disables the wiring.
	Backup services.BackupToggle

	IIIF  handlers.MetadataService
	Tiles handlers.TileService
}

// RegisterRoutes attaches all middleware and endpoints to r.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) error {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(middleware.Owner())

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByOwnerOrIP())
	r.Use(rl.Handler())

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Owner-ID", handlers.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Owner-ID", handlers.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services over the shared DB handle.
	store := services.NewStoreService(deps.DB)
	syncSvc := &services.SyncService{
		Store:   store,
		Remote:  deps.Remote,
		Session: deps.Session,
		Sink:    deps.Sink,
	}
	snapSvc := deps.Snapshots
	if snapSvc == nil {
		snapSvc = services.NewSnapshotService(deps.DB, cfg.Snapshot.MaxPerOwner)
	}
	settingsSvc, err := services.NewSettingsService(deps.DB)
	if err != nil {
		return err
	}
	settingsSvc.Backup = deps.Backup
	georefSvc := services.NewGeorefService(deps.DB, deps.Compute, store, cfg.ReceiptTTL)

	h := handlers.New(syncSvc, store, snapSvc, settingsSvc, georefSvc, deps.IIIF, deps.Tiles)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/maps", h.ListMaps)
		api.PUT("/maps/:id", h.SaveMap)
		api.GET("/maps/:id", h.GetMap)
		api.DELETE("/maps/:id", h.DeleteMap)
		api.POST("/maps/:id/georeference", h.Georeference)
		api.GET("/maps/:id/metadata", h.MapMetadata)
		api.GET("/maps/:id/tiles", h.TileStatus)

		api.POST("/snapshots", h.CreateSnapshot)
		api.GET("/snapshots", h.ListSnapshots)
		api.POST("/snapshots/:id/restore", h.RestoreSnapshot)

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.PutSettings)
	}
	return nil
}

// NewComputeClient builds the default compute client from config, for main
// to inject into Deps.
func NewComputeClient(cfg config.Config, sess session.Session) *gateway.ComputeClient {
	return gateway.NewComputeClient(cfg.Remote.ComputeBaseURL, sess, nil, cfg.Remote.SubmitTimeout)
}

// limitBody caps the request body for every endpoint.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" or empty as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
