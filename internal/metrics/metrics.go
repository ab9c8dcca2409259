package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messaging_messages_appended_total",
		Help: "Messages persisted through the append path.",
	})
	BroadcastDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messaging_broadcast_deliveries_total",
		Help: "Message events handed to live sessions.",
	})
	PushOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_push_outcomes_total",
		Help: "Push notification attempts by outcome.",
	}, []string{"outcome"})
)

// Handler exposes the Prometheus scrape endpoint as a fiber handler.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
