package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AgreementsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agreements_created_total",
		Help: "Total number of agreed vehicles created",
	})

	AgreementsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agreements_failed_total",
		Help: "Total number of failed agree-price requests",
	}, []string{"reason"})

	AgreementsReconciledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agreements_reconciled_total",
		Help: "Total number of inquiries repaired by the reconciliation task",
	})

	InquiryLookupCollectionsScanned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inquiry_lookup_collections_scanned",
		Help:    "Number of collections examined per inquiry lookup",
		Buckets: []float64{1, 2, 3, 5, 10, 20},
	})

	VehicleResolutionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_resolution_total",
		Help: "Source listing resolution outcomes by strategy",
	}, []string{"strategy"})

	InquiriesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inquiries_created_total",
		Help: "Total number of customer inquiries created",
	})

	ImagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "images_processed_total",
		Help: "Listing images processed by the image worker",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
