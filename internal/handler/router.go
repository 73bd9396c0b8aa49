package handler

import (
	"net/http"

	_ "address-risk-api/docs" // register swagger spec

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterConfig holds everything the router binds to a route.
type RouterConfig struct {
	Addresses *AddressHandler
	Risks     *RiskHandler
	DB        Pinger

	// Middleware wraps recovery, so it also sees requests whose handler panicked.
	Middleware []gin.HandlerFunc
	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
}

// NewRouter assembles the HTTP surface.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(cfg.Middleware...)
	r.Use(gin.Recovery(), RequestLogger())

	r.GET("/health", Health(cfg.DB))
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/addresses")
	api.POST("/", cfg.Addresses.CreateAddress)
	api.GET("/:id/risks/", cfg.Risks.GetRisks)

	return r
}
