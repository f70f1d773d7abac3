// Package api contains all endpoints available
package api

import (
	"bitwise74/trackbook/db"
	"bitwise74/trackbook/middleware"
	"bitwise74/trackbook/repository"
	"bitwise74/trackbook/service"
	"bitwise74/trackbook/session"
	"bitwise74/trackbook/storage"
	"context"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

type API struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Repo     *repository.TrackRepo
	Tracks   *service.Tracks
	Sessions session.Store
	Cron     *cron.Cron

	cache *persist.MemoryStore
}

// NewRouter connects every backend configured through viper and builds
// the router on top of them
func NewRouter(ctx context.Context) (*API, error) {
	d, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	store, err := storage.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage, %w", err)
	}

	sessions, err := session.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store, %w", err)
	}

	a := New(d, store, sessions)

	if spec := viper.GetString("cleanup.schedule"); spec != "" {
		r := service.NewReconciler(a.Repo, viper.GetDuration("cleanup.grace"))

		a.Cron, err = r.Schedule(spec)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

// New builds the router around already connected backends
func New(d *gorm.DB, store storage.Store, sessions session.Store) *API {
	repo := repository.NewTrackRepo(d, store)

	a := &API{
		DB:       d,
		Repo:     repo,
		Tracks:   service.NewTracks(repo),
		Sessions: sessions,
		cache:    persist.NewMemoryStore(time.Minute),
	}

	origins := viper.GetStringSlice("host.cors_origins")
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("sessionID"); v != "" {
					fields = append(fields, zap.String("session_id", v))
				}

				return fields
			},
		}),
		middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
			RequestsPerSecond: viper.GetInt("security.rate_limit"),
			Burst:             viper.GetInt("security.rate_limit") * 2,
		}),
		middleware.NewSessionMiddleware(viper.GetBool("host.secure_cookies")),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 5 << 20

	maxUploadSize := viper.GetInt64("upload.max_size_bytes") * max(int64(viper.GetInt("upload.max_files")), 1)
	if maxUploadSize <= 0 {
		maxUploadSize = 20 << 20
	}
	geometryTTL := viper.GetDuration("cache.geometry_ttl")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// GET /api/labels		-> Returns every label in use
		main.GET("/labels", a.LabelsFetch)

		// GET /api/session		-> Returns the selection and filter of the session
		main.GET("/session", a.SessionFetch)

		// PUT /api/session/filter	-> Replaces the filter of the session
		main.PUT("/session/filter", middleware.BodySizeLimiter(1<<20), a.SessionFilterUpdate)

		// GET /api/selection		-> Returns geometry and totals of the selected tracks
		main.GET("/selection", a.SelectionFetch)

		// POST /api/selection		-> Replaces the selection and returns its geometry
		main.POST("/selection", middleware.BodySizeLimiter(1<<20), a.SelectionUpdate)
	}

	tracks := main.Group("/tracks")
	{
		// GET /api/tracks		-> Lists tracks matching the filter
		tracks.GET("", a.TrackFetchBulk)

		// POST /api/tracks		-> Uploads one or more GPX files
		tracks.POST("", middleware.BodySizeLimiter(maxUploadSize), a.TrackUpload)

		// POST /api/tracks/delete	-> Deletes many tracks at once
		tracks.POST("/delete", middleware.BodySizeLimiter(1<<20), a.TrackDeleteBulk)

		// GET /api/tracks/:id		-> Returns a single track
		tracks.GET("/:id", a.TrackFetch)

		// PATCH /api/tracks/:id	-> Edits name and labels of a track
		tracks.PATCH("/:id", middleware.BodySizeLimiter(1<<20), a.TrackEdit)

		// DELETE /api/tracks/:id	-> Deletes a track and its file
		tracks.DELETE("/:id", a.TrackDelete)

		// GET /api/tracks/:id/points	-> Returns the points of a track
		tracks.GET("/:id/points", a.cacheFor(geometryTTL), a.TrackPoints)

		// GET /api/tracks/:id/elevation -> Returns the elevation profile of a track
		tracks.GET("/:id/elevation", a.cacheFor(geometryTTL), a.TrackElevation)

		// GET /api/tracks/:id/file	-> Downloads the original GPX file
		tracks.GET("/:id/file", a.TrackFile)
	}

	return a
}

// Close stops background jobs
func (a *API) Close() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// Geometry never changes for a given id, so it can be cached until the
// track is deleted
func (a *API) cacheFor(ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return cache.CacheByRequestURI(a.cache, ttl)
}

// forget drops cached geometry of a deleted track
func (a *API) forget(ids ...int64) {
	for _, id := range ids {
		for _, suffix := range []string{"points", "elevation"} {
			// Missing keys are fine
			_ = a.cache.Delete(fmt.Sprintf("/api/tracks/%d/%s", id, suffix))
		}
	}
}
