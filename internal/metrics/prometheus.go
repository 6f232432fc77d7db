package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "obx_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGauge struct {
	gauge prometheus.Gauge
}

func (p promGauge) Set(v float64) {
	p.gauge.Set(v)
}

type Prometheus struct {
	Metrics  *Metrics
	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(g)
		return g
	}

	m := &Metrics{
		DecisionsEvaluated: promCounter{counter("decisions_evaluated_total", "Total market updates run through the decision pipeline.")},
		SignalsConfirmed:   promCounter{counter("signals_confirmed_total", "Total decisions that produced an order request.")},
		RiskVetoes:         promCounter{counter("risk_vetoes_total", "Total ticks vetoed by the risk manager or volatility brake.")},
		SpreadVetoes:       promCounter{counter("spread_vetoes_total", "Total ticks vetoed by the spread/depth filter.")},
		SignalVetoes:       promCounter{counter("signal_vetoes_total", "Total ticks with no signal or unconfirmed trade flow.")},
		SizeVetoes:         promCounter{counter("size_vetoes_total", "Total ticks where sizing collapsed below the tradable minimum.")},
		OrdersPlaced:       promCounter{counter("orders_placed_total", "Total orders accepted by the gateway.")},
		OrdersFailed:       promCounter{counter("orders_failed_total", "Total order submission failures.")},
		CooldownEngaged:    promCounter{counter("cooldown_engaged_total", "Total consecutive-loss cooldown engagements.")},
		DailyBlockEngaged:  promCounter{counter("daily_block_engaged_total", "Total daily loss limit engagements.")},
		DailyPnLUSD:        promGauge{gauge("daily_pnl_usd", "Running realized P&L for the current trading day.")},
		ConsecutiveLosses:  promGauge{gauge("consecutive_losses", "Current consecutive-loss streak.")},
	}

	return &Prometheus{Metrics: m, registry: registry}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
