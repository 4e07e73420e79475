package prometheus

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/questx-lab/luckydraw/internal/common"
)

// Register adds the engine metrics to registerer.
func Register(registerer prometheus.Registerer) error {
	for name, counter := range common.PromCounters {
		if err := registerer.Register(counter); err != nil {
			return fmt.Errorf("cannot register %s: %w", name, err)
		}
	}

	for name, histogram := range common.PromHistograms {
		if err := registerer.Register(histogram); err != nil {
			return fmt.Errorf("cannot register %s: %w", name, err)
		}
	}

	return nil
}

// NewHandler serves the engine metrics along with the go runtime, process and
// build info collectors.
func NewHandler() (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)

	if err := Register(registry); err != nil {
		return nil, err
	}

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}), nil
}
