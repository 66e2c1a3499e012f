// Package metrics holds the Prometheus instruments shared across the service.
// Collectors are registered with the default registry in init, so mounting
// promhttp on /metrics is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SettingsLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_settings_load_total",
			Help: "Settings loads by outcome (live, created, fallback_network, fallback_unexpected).",
		}, []string{"result"})

	SettingsSaveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_settings_save_total",
			Help: "Settings saves by outcome.",
		}, []string{"result"})

	SessionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_session_transitions_total",
			Help: "Session bridge transitions by target state and reason.",
		}, []string{"state", "reason"})

	BridgeSessionActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wedding_bridge_session_active",
			Help: "1 while a bridged session is installed in the data client.",
		})

	GiftReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_gift_reservations_total",
			Help: "Gift reservation attempts by outcome.",
		}, []string{"result"})

	RealtimeNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedding_realtime_notifications_total",
			Help: "Change notifications received per collection.",
		}, []string{"collection"})
)

func init() {
	prometheus.MustRegister(
		SettingsLoadTotal,
		SettingsSaveTotal,
		SessionTransitionsTotal,
		BridgeSessionActive,
		GiftReservationsTotal,
		RealtimeNotificationsTotal,
	)
}
