package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCodecMetrics() {
	r.CodecEncodeBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxstore_codec_encode_bytes",
			Help:    "Size of encoded UArr units",
			Buckets: prometheus.ExponentialBuckets(16, 4, 10),
		},
	)

	r.CodecDecodeErrors = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "fluxstore_codec_decode_errors_total",
			Help: "UArr units rejected as malformed during replay",
		},
	)
}
