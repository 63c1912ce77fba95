// Package metrics records lapboard runtime metrics.
//
// Components take a Recorder and default to NoopRecorder, so metrics stay
// optional without nil checks at call sites. PrometheusRecorder is the real
// implementation; HTTPHandler exposes its registry on /metrics.
package metrics
