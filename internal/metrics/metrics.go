package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(v float64)
}

type Metrics struct {
	DecisionsEvaluated Counter
	SignalsConfirmed   Counter
	RiskVetoes         Counter
	SpreadVetoes       Counter
	SignalVetoes       Counter
	SizeVetoes         Counter
	OrdersPlaced       Counter
	OrdersFailed       Counter
	CooldownEngaged    Counter
	DailyBlockEngaged  Counter

	DailyPnLUSD       Gauge
	ConsecutiveLosses Gauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

func NewNoop() *Metrics {
	c := noopCounter{}
	g := noopGauge{}
	return &Metrics{
		DecisionsEvaluated: c,
		SignalsConfirmed:   c,
		RiskVetoes:         c,
		SpreadVetoes:       c,
		SignalVetoes:       c,
		SizeVetoes:         c,
		OrdersPlaced:       c,
		OrdersFailed:       c,
		CooldownEngaged:    c,
		DailyBlockEngaged:  c,
		DailyPnLUSD:        g,
		ConsecutiveLosses:  g,
	}
}
