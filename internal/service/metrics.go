package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	importKindRecords   = "records"
	importKindEmployees = "employees"
)

type importMetrics struct {
	stagedRows    *prometheus.CounterVec
	commits       *prometheus.CounterVec
	writtenRows   *prometheus.CounterVec
	sweptRows     *prometheus.CounterVec
	cancelledRows *prometheus.CounterVec
}

var metrics = sync.OnceValue(func() *importMetrics {
	return &importMetrics{
		stagedRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthrecords",
			Name:      "import_staged_rows_total",
			Help:      "Rows written to staging, by import kind and validity.",
		}, []string{"kind", "valid"}),
		commits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthrecords",
			Name:      "import_commits_total",
			Help:      "Batch commit attempts, by import kind and result.",
		}, []string{"kind", "result"}),
		writtenRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthrecords",
			Name:      "import_committed_rows_total",
			Help:      "Committed staging rows, by import kind and outcome (created, updated, skipped).",
		}, []string{"kind", "outcome"}),
		sweptRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthrecords",
			Name:      "import_swept_rows_total",
			Help:      "Expired staging rows removed by the sweeper.",
		}, []string{"kind"}),
		cancelledRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthrecords",
			Name:      "import_cancelled_rows_total",
			Help:      "Staging rows discarded by cancel.",
		}, []string{"kind"}),
	}
})
