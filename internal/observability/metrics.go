package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timeweave/engine/internal/core/event"
	"github.com/timeweave/engine/internal/engine"
)

// TempoCollector bundles Prometheus metrics for the time control engine.
type TempoCollector struct {
	gatherer prometheus.Gatherer

	Scale        prometheus.Gauge
	Energy       prometheus.Gauge
	TimelineLen  prometheus.Gauge
	TimelineSpan prometheus.Gauge
	Bubbles      prometheus.Gauge
	Entities     prometheus.Gauge
	Rewinding    prometheus.Gauge

	Rewinds        *prometheus.CounterVec
	Depletions     prometheus.Counter
	BubblesCreated prometheus.Counter
	TickDurations  prometheus.Histogram
}

// NewTempoCollector registers engine metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewTempoCollector(reg prometheus.Registerer) (*TempoCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &TempoCollector{gatherer: gatherer}
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Scale, "tempo_scale", "Current global time scale."},
		{&c.Energy, "tempo_energy", "Current time energy."},
		{&c.TimelineLen, "tempo_timeline_snapshots", "Snapshots held in the timeline."},
		{&c.TimelineSpan, "tempo_timeline_span_seconds", "Seconds of history between the oldest and newest snapshot."},
		{&c.Bubbles, "tempo_bubbles", "Live time bubbles."},
		{&c.Entities, "tempo_entities", "Tracked entities."},
		{&c.Rewinding, "tempo_rewinding", "1 while a rewind is active."},
	}
	for _, g := range gauges {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	rewinds, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tempo_rewinds_total",
		Help: "Completed rewinds, labeled by end reason.",
	}, []string{"reason"}), "tempo_rewinds_total")
	if err != nil {
		return nil, err
	}
	depletions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tempo_energy_depletions_total",
		Help: "Times the clock ran out of energy and released time control.",
	}), "tempo_energy_depletions_total")
	if err != nil {
		return nil, err
	}
	created, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tempo_bubbles_created_total",
		Help: "Time bubbles created.",
	}), "tempo_bubbles_created_total")
	if err != nil {
		return nil, err
	}
	ticks, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tempo_tick_duration_seconds",
		Help:    "Wall time spent in one engine tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "tempo_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	c.Rewinds = rewinds
	c.Depletions = depletions
	c.BubblesCreated = created
	c.TickDurations = ticks
	return c, nil
}

// Subscribe feeds the event counters from the engine's bus.
func (c *TempoCollector) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(e event.RewindEnded) {
		c.Rewinds.WithLabelValues(e.Reason.String()).Inc()
	})
	event.Subscribe(bus, func(event.EnergyDepleted) {
		c.Depletions.Inc()
	})
	event.Subscribe(bus, func(event.BubbleCreated) {
		c.BubblesCreated.Inc()
	})
}

// Observe copies a published status into the gauges.
func (c *TempoCollector) Observe(st engine.Status, tickTime time.Duration) {
	if c == nil {
		return
	}
	c.Scale.Set(st.Scale)
	c.Energy.Set(st.Energy)
	c.TimelineLen.Set(float64(st.TimelineLen))
	c.TimelineSpan.Set(st.TimelineSpan)
	c.Bubbles.Set(float64(st.Bubbles))
	c.Entities.Set(float64(st.Entities))
	if st.Rewinding {
		c.Rewinding.Set(1)
	} else {
		c.Rewinding.Set(0)
	}
	c.TickDurations.Observe(tickTime.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TempoCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
