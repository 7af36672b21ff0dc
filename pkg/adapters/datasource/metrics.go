package datasource

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

var (
	connectionTestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasource_connection_tests_total",
			Help: "Connectivity probes by engine type and result.",
		},
		[]string{"type", "result"},
	)

	databaseListingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasource_database_listings_total",
			Help: "Live database enumerations by engine type and result.",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(connectionTestsTotal, databaseListingsTotal)
}

func resultLabel(ok bool) string {
	if ok {
		return resultSuccess
	}
	return resultFailure
}

func observeConnectionTest(dbType models.DbType, ok bool) {
	connectionTestsTotal.WithLabelValues(string(dbType), resultLabel(ok)).Inc()
}

func observeDatabaseListing(dbType models.DbType, ok bool) {
	databaseListingsTotal.WithLabelValues(string(dbType), resultLabel(ok)).Inc()
}
