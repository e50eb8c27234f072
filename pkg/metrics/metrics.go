// Package metrics exposes controller activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/janael-pinheiro/planter-controller-golang/pkg/entities"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

const namespace = "planter"

// Metrics groups the controller collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer      prometheus.Gatherer
	cycles        prometheus.Counter
	sensorValue   *prometheus.GaugeVec
	sensorFaults  *prometheus.CounterVec
	tankLevel     prometheus.Gauge
	historyLength prometheus.Gauge
	needingWater  prometheus.Gauge
	waterings     *prometheus.CounterVec
	sinkFailures  *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
}

// New registers the collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: registry,
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Monitoring cycles completed.",
		}),
		sensorValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_value",
			Help:      "Last value read per sensor.",
		}, []string{"sensor"}),
		sensorFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_faults_total",
			Help:      "Failed sensor reads.",
		}, []string{"sensor"}),
		tankLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "water_tank_percent",
			Help:      "Water tank fill level derived from the level contacts.",
		}),
		historyLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_length",
			Help:      "Readings retained in the history ring.",
		}),
		needingWater: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plants_needing_water",
			Help:      "Plants found due for watering in the last cycle.",
		}),
		waterings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waterings_total",
			Help:      "Watering attempts by source and result.",
		}, []string{"source", "result"}),
		sinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Failed deliveries per reporting sink.",
		}, []string{"sink"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half open, 2 open).",
		}, []string{"breaker"}),
	}

	registry.MustRegister(
		m.cycles,
		m.sensorValue,
		m.sensorFaults,
		m.tankLevel,
		m.historyLength,
		m.needingWater,
		m.waterings,
		m.sinkFailures,
		m.breakerState,
	)
	return m
}

// ObserveCycle records the outcome of one monitoring cycle.
func (m *Metrics) ObserveCycle(reading entities.SensorReading, historyLength, needingWater int) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.sensorValue.WithLabelValues("temperature").Set(reading.Temperature)
	m.sensorValue.WithLabelValues("humidity").Set(reading.Humidity)
	m.sensorValue.WithLabelValues("soil_moisture").Set(reading.SoilMoisture)
	m.sensorValue.WithLabelValues("light").Set(reading.Light)
	for _, fault := range reading.Faults {
		m.sensorFaults.WithLabelValues(string(fault)).Inc()
	}
	m.tankLevel.Set(reading.WaterTankPercentage)
	m.historyLength.Set(float64(historyLength))
	m.needingWater.Set(float64(needingWater))
}

func (m *Metrics) ObserveWatering(event entities.WateringEvent) {
	if m == nil {
		return
	}
	m.waterings.WithLabelValues(string(event.Source), string(event.Result)).Inc()
}

func (m *Metrics) SinkFailure(sink string) {
	if m == nil {
		return
	}
	m.sinkFailures.WithLabelValues(sink).Inc()
}

// BreakerState implements reporting.BreakerObserver.
func (m *Metrics) BreakerState(name string, state gobreaker.State) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
