package metrics_config

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/dominant-strategies/go-quai-l2/log"
)

// enabled is checked by the constructor functions for all of the
// standard metrics. If it is false, the metric returned is nil and callers
// skip recording.
var enabled = true

func EnableMetrics() {
	enabled = true
}

func DisableMetrics() {
	enabled = false
}

func MetricsEnabled() bool {
	return enabled
}

// StartProcessMetrics registers the process gauges and serves the default
// registry on addr.
func StartProcessMetrics(addr string) {
	// Short circuit if the metrics system is disabled
	if !enabled {
		return
	}

	// System usage metrics.
	gaugesMap := make(map[string]*prometheus.GaugeVec)

	gaugesMap["cpu"] = defineProcessGauge("cpu_usage", "The average CPU usage over the last second", "cpu_type")
	gaugesMap["mem"] = defineProcessGauge("mem_usage", "The current memory usage", "mem_type")

	go initializeHttpMetrics(addr, gaugesMap)
}

func NewGaugeVec(name string, help string) *prometheus.GaugeVec {
	if !enabled {
		return nil
	}
	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, []string{"label"})
	prometheus.MustRegister(gaugeVec)
	return gaugeVec
}

func NewGauge(name string, help string) prometheus.Gauge {
	if !enabled {
		return nil
	}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	})
	prometheus.MustRegister(gauge)
	return gauge
}

func NewCounter(name string, help string) prometheus.Counter {
	if !enabled {
		return nil
	}
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: help,
	})
	prometheus.MustRegister(counter)
	return counter
}

// NewHistogram returns a registered histogram with the default buckets. Use
// it with prometheus.NewTimer to time a code path.
func NewHistogram(name string, help string) prometheus.Histogram {
	if !enabled {
		return nil
	}
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: name,
		Help: help,
	})
	prometheus.MustRegister(histogram)
	return histogram
}

func initializeHttpMetrics(addr string, metricsMap map[string]*prometheus.GaugeVec) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			updateMetrics(metricsMap)
			promhttp.Handler().ServeHTTP(w, r)
		}),
	))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithField("err", err).Error("Metrics server stopped")
	}
}

func defineProcessGauge(name, help, label string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{label},
	)
	prometheus.MustRegister(gauge)
	return gauge
}

func updateMetrics(metricsMap map[string]*prometheus.GaugeVec) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		log.WithField("err", err).Error("Failed to get process")
		return
	}

	collectCPUMetrics(metricsMap["cpu"], proc)
	collectMemoryMetrics(metricsMap["mem"], proc)
}

func collectCPUMetrics(cpuGaugeVec *prometheus.GaugeVec, proc *process.Process) {
	percent, err := proc.CPUPercent()
	if err != nil {
		log.WithField("err", err).Error("Failed to get CPU percent")
	} else {
		cpuGaugeVec.WithLabelValues("go-quai-l2").Set(percent)
	}

	usage, err := cpu.Percent(0, false)
	if err != nil || len(usage) == 0 {
		log.WithField("err", err).Error("Failed to get CPU percent")
	} else {
		cpuGaugeVec.WithLabelValues("System").Set(usage[0])
	}

	threads, err := proc.NumThreads()
	if err != nil {
		log.WithField("err", err).Error("Failed to get threads")
	} else {
		cpuGaugeVec.WithLabelValues("Threads").Set(float64(threads))
	}
}

func collectMemoryMetrics(memGaugeVec *prometheus.GaugeVec, proc *process.Process) {
	memInfo, err := proc.MemoryInfo()
	if err != nil {
		log.WithField("err", err).Error("Error while getting memory info")
	} else {
		memGaugeVec.WithLabelValues("Used").Set(float64(memInfo.RSS))
		memGaugeVec.WithLabelValues("Swap").Set(float64(memInfo.Swap))
		memGaugeVec.WithLabelValues("Stack").Set(float64(memInfo.Stack))
	}
}
