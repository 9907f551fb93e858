package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosScreenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dfd_videos_screened_total",
		Help: "Total number of videos screened, by verdict (fake, real, rejected, error)",
	}, []string{"verdict"})

	FramesDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dfd_frames_decoded_total",
		Help: "Total number of frames decoded across all videos",
	})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dfd_frames_sampled_total",
		Help: "Total number of frames scored by the classifier",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dfd_stage_duration_seconds",
		Help:    "Duration of screening stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dfd_active_workers",
		Help: "Number of running watch workers, each holding a loaded classifier",
	})

	LedgerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dfd_ledger_requests_total",
		Help: "Total number of ledger requests, by operation and outcome",
	}, []string{"op", "status"})
)
