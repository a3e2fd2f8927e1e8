// Package metrics records store and binding activity.
package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives store and binding measurements. Implementations must be
// safe for concurrent use.
type Recorder interface {
	// StoreTransition counts a published snapshot; op names the mutation.
	StoreTransition(store, op string)
	// Notification counts one listener invocation.
	Notification(store string)
	// Resolve observes one dependency resolution pass of a unit.
	Resolve(component string, props int, elapsed time.Duration)
	// Subscribers reports the active subscription count of a store.
	Subscribers(store string, count int)
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) StoreTransition(string, string) {}
func (Noop) Notification(string) {}
func (Noop) Resolve(string, int, time.Duration) {}
func (Noop) Subscribers(string, int) {}

// Prometheus implements Recorder with client_golang collectors.
type Prometheus struct {
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	resolves      *prometheus.CounterVec
	resolveProps  *prometheus.GaugeVec
	resolveTime   *prometheus.HistogramVec
	subscribers   *prometheus.GaugeVec
}

// DefaultNamespace prefixes every collector name when none is supplied.
const DefaultNamespace = "relax"

// NewPrometheus builds the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		return nil, fmt.Errorf("metrics: registerer is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}

	p := &Prometheus{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "transitions_total",
			Help:      "Snapshots published by a store, by mutation",
		}, []string{"store", "op"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "notifications_total",
			Help:      "Listener invocations by store",
		}, []string{"store"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "subscribers",
			Help:      "Active subscriptions by store",
		}, []string{"store"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "resolves_total",
			Help:      "Dependency resolution passes by component",
		}, []string{"component"}),
		resolveProps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "derived_props",
			Help:      "Derived props produced by the last resolution",
		}, []string{"component"}),
		resolveTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "binding",
			Name:      "resolve_duration_seconds",
			Help:      "Dependency resolution latency in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"component"}),
	}

	collectors := []prometheus.Collector{
		p.transitions, p.notifications, p.subscribers,
		p.resolves, p.resolveProps, p.resolveTime,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return p, nil
}

func (p *Prometheus) StoreTransition(store, op string) {
	p.transitions.WithLabelValues(store, op).Inc()
}

func (p *Prometheus) Notification(store string) {
	p.notifications.WithLabelValues(store).Inc()
}

func (p *Prometheus) Resolve(component string, props int, elapsed time.Duration) {
	p.resolves.WithLabelValues(component).Inc()
	p.resolveProps.WithLabelValues(component).Set(float64(props))
	p.resolveTime.WithLabelValues(component).Observe(elapsed.Seconds())
}

func (p *Prometheus) Subscribers(store string, count int) {
	p.subscribers.WithLabelValues(store).Set(float64(count))
}
