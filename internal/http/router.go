package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/you/backoffice/internal/http/handlers"
	"github.com/you/backoffice/internal/http/middleware"
)

// RouteRegistrar mounts a group of handlers, such as one feature's mutation endpoints.
type RouteRegistrar interface {
	Register(rg gin.IRoutes)
}

// RouterDeps holds everything BuildRouter wires together.
type RouterDeps struct {
	Mutations []RouteRegistrar
	Funds     *handlers.FundsHandlers
	WS        *handlers.WSHandler
	Auth      *middleware.AuthMW
	Casbin    middleware.CasbinMiddleware
	Limiter   *middleware.RateLimiter
	Gatherer  prometheus.Gatherer
}

func BuildRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	authed := r.Group("/", d.Auth.WithJWT())
	authed.GET("/ws", d.WS.Connect)
	authed.GET("/funds/windows", d.Funds.Windows)
	authed.POST("/funds/withdrawals", d.Limiter.Limit(), d.Funds.RequestWithdrawal)
	authed.POST("/funds/deposits", d.Funds.QueueDeposit)

	mutations := r.Group("/mutations", d.Auth.WithJWT(), d.Limiter.Limit())
	for _, m := range d.Mutations {
		m.Register(mutations)
	}

	adm := r.Group("/admin", d.Auth.WithJWT(), d.Casbin.Enforce())
	adm.POST("/sweeps/withdrawals", d.Funds.SweepWithdrawals)
	adm.POST("/sweeps/deposits", d.Funds.SweepDeposits)
	adm.POST("/sweeps/settlements", d.Funds.SweepSettlements)
	adm.POST("/withdrawals/:id/complete", d.Funds.CompleteWithdrawal)
	adm.POST("/deposits/:id/complete", d.Funds.CompleteDeposit)
	adm.POST("/settlements/:id/complete", d.Funds.CompleteSettlement)
	adm.POST("/settlements", d.Funds.QueueSettlement)

	return r
}
