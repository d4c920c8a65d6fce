package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsMinted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_tickets_minted_total",
			Help: "Tickets minted per collection",
		},
		[]string{"collection_id"},
	)

	purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_purchases_total",
			Help: "Primary-market purchases per collection and outcome",
		},
		[]string{"collection_id", "status"},
	)

	bids = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_bids_total",
			Help: "Secondary-market bids per outcome (leading, rejected, failed)",
		},
		[]string{"outcome"},
	)

	settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_settlements_total",
			Help: "Listings settled per kind (accepted, delisted)",
		},
		[]string{"kind"},
	)

	escrowHeld = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_escrow_held_units",
			Help: "Payment-token units currently held in bid escrow",
		},
	)

	activeListings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_active_listings",
			Help: "Currently active secondary-market listings",
		},
	)
)

func RecordMint(collectionID string) {
	ticketsMinted.WithLabelValues(collectionID).Inc()
}

func RecordPurchase(collectionID, status string) {
	purchases.WithLabelValues(collectionID, status).Inc()
}

func RecordBid(outcome string) {
	bids.WithLabelValues(outcome).Inc()
}

func RecordSettlement(kind string) {
	settlements.WithLabelValues(kind).Inc()
}

func AddEscrowHeld(delta int64) {
	escrowHeld.Add(float64(delta))
}

func ListingOpened() {
	activeListings.Inc()
}

func ListingClosed() {
	activeListings.Dec()
}
