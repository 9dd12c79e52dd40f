package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PassMetrics aggregates the issuance engine's operational counters.
type PassMetrics struct {
	mints      *prometheus.CounterVec
	upgrades   *prometheus.CounterVec
	rejections *prometheus.CounterVec
	supply     *prometheus.GaugeVec
	totalSupply prometheus.Gauge
}

var (
	passOnce     sync.Once
	passRegistry *PassMetrics
)

// Pass returns the process-wide pass metrics collection, registering it with
// the default registry on first use.
func Pass() *PassMetrics {
	passOnce.Do(func() {
		passRegistry = &PassMetrics{
			mints: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pass_mints_total",
				Help: "Count of minted passes by track.",
			}, []string{"track"}),
			upgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pass_upgrades_total",
				Help: "Count of completed upgrades by target level.",
			}, []string{"level"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pass_rejections_total",
				Help: "Count of rejected operations by reason.",
			}, []string{"reason"}),
			supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "pass_supply",
				Help: "Live pass count per level.",
			}, []string{"level"}),
			totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "pass_supply_total",
				Help: "Total live pass count.",
			}),
		}
		prometheus.MustRegister(
			passRegistry.mints,
			passRegistry.upgrades,
			passRegistry.rejections,
			passRegistry.supply,
			passRegistry.totalSupply,
		)
	})
	return passRegistry
}

// RecordMint increments the mint counter for a track.
func (m *PassMetrics) RecordMint(track string) {
	if m == nil {
		return
	}
	m.mints.WithLabelValues(track).Inc()
}

// RecordUpgrade increments the upgrade counter for a target level.
func (m *PassMetrics) RecordUpgrade(level uint8) {
	if m == nil {
		return
	}
	m.upgrades.WithLabelValues(strconv.FormatUint(uint64(level), 10)).Inc()
}

// RecordRejection increments the rejection counter for a reason label.
func (m *PassMetrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// SetSupply publishes a supply snapshot.
func (m *PassMetrics) SetSupply(perLevel [6]uint64, total uint64) {
	if m == nil {
		return
	}
	for i, count := range perLevel {
		m.supply.WithLabelValues(strconv.Itoa(i + 1)).Set(float64(count))
	}
	m.totalSupply.Set(float64(total))
}
