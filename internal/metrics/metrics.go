package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bsp_signals_total", Help: "Signals emitted by strategies"},
		[]string{"strategy", "kind"},
	)
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bsp_bars_total", Help: "Finalized bars processed"},
		[]string{"level"},
	)
	ScreenSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "bsp_screen_skipped_total", Help: "Symbols skipped during screening"},
	)
	FeedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bsp_feed_messages_total", Help: "Structural engine feed messages"},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, BarsTotal, ScreenSkippedTotal, FeedMessagesTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
