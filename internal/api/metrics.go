package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	transfersAttempted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dundie_transfers_attempted_total",
		Help: "Number of transfer requests reaching the transfer engine.",
	})

	transfersCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dundie_transfers_committed_total",
		Help: "Number of transfers durably committed to the ledger.",
	})

	transfersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dundie_transfers_rejected_total",
		Help: "Number of transfers rejected by the admission check.",
	})
)

// RegisterMetricsRoute exposes the prometheus registry over HTTP.
func RegisterMetricsRoute(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
