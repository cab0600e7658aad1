package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	UpdatesTotal       prometheus.Counter
	DuplicatesDropped  prometheus.Counter
	CommandsTotal      *prometheus.CounterVec
	GenerationFailures prometheus.Counter
	ImagesResized      prometheus.Counter
	RoastsTotal        prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			UpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "genbot",
				Name:      "telegram_updates_total",
				Help:      "Total telegram updates received",
			}),
			DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "genbot",
				Name:      "telegram_duplicates_dropped_total",
				Help:      "Total duplicate updates dropped by the deduplicator",
			}),
			CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "genbot",
				Name:      "commands_total",
				Help:      "Total commands dispatched, by command name",
			}, []string{"command"}),
			GenerationFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "genbot",
				Name:      "generation_failures_total",
				Help:      "Total failed calls to the generation endpoints",
			}),
			ImagesResized: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "genbot",
				Name:      "images_resized_total",
				Help:      "Total images resized successfully",
			}),
			RoastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "genbot",
				Name:      "roasts_total",
				Help:      "Total passive roast replies sent",
			}),
		}
		prometheus.MustRegister(
			global.UpdatesTotal,
			global.DuplicatesDropped,
			global.CommandsTotal,
			global.GenerationFailures,
			global.ImagesResized,
			global.RoastsTotal,
		)
	})
	return global
}
