package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vmandke/vending-machine/internal/adapter/http/middleware"
	"github.com/vmandke/vending-machine/internal/logging"
)

func NewRouter(h *MachineHandler, oh *OperatorHandler, th *TokenHandler, authz *middleware.Authz, exit func()) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Fatal(exit), middleware.Metrics())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", th.IssueToken)

	v1 := r.Group("/v1")
	{
		v1.POST("/users", h.Register)
		v1.GET("/users", h.ViewWallet)
		v1.PUT("/users/deposit", h.Deposit)
		v1.PUT("/products", h.AddProduct)
		v1.DELETE("/products", h.DeleteProduct)
		v1.GET("/products/:name", h.GetProduct)
		v1.POST("/products/buy", h.Buy)
	}

	ops := r.Group("/v1/machine")
	{
		ops.GET("/till", authz.Require("till.read"), oh.Till)
		ops.POST("/till/float", authz.Require("till.write"), oh.LoadFloat)
		ops.POST("/till/collect", authz.Require("till.write"), oh.Collect)
		ops.GET("/status", authz.Require("till.read"), oh.Status)
	}

	return r
}
