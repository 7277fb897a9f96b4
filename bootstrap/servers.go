package bootstrap

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"search-indexer/config"
	authmw "search-indexer/internal/auth/middleware"
	"search-indexer/rest"
	appOtel "search-indexer/utils/otel"
)

// newHTTPServer creates the REST HTTP server. h2c lets in-cluster callers
// speak HTTP/2 without TLS termination at the service.
func newHTTPServer(restHandler *rest.Handler, authMiddleware *authmw.AuthMiddleware, otelCfg appOtel.Config) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/v1", authMiddleware.RequireAuth())
	v1.POST("/search", restHandler.Search)
	v1.GET("/suggest", restHandler.Suggest)
	v1.GET("/stats", restHandler.Stats, authMiddleware.RequireRole("admin"))

	return &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           h2c.NewHandler(e, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
