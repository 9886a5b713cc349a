// Package metrics exports pairing protocol counters to Prometheus.
//
// A Recorder implements pairing.Metrics. Register it with a
// prometheus.Registerer and serve the registry with promhttp:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewRecorder("badgelink")
//	reg.MustRegister(rec)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics
