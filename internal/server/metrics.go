package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusmark_synced_items_total",
		Help: "Items accepted by bulk upserts, by entity kind.",
	}, []string{"kind"})

	fetchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusmark_fetch_total",
		Help: "Fetch-all requests, by cache outcome.",
	}, []string{"cache"})

	deleteRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusmark_delete_total",
		Help: "Delete-all-for-user requests.",
	})
)
