// Package metrics exposes Prometheus collectors for the task lifecycle and
// notification delivery paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksCreated counts created tasks by action type
	TasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bartracker",
		Name:      "tasks_created_total",
		Help:      "Number of tasks created, by action type.",
	}, []string{"action_type"})

	// TasksCompleted counts completions by outcome (on_time or late)
	TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bartracker",
		Name:      "tasks_completed_total",
		Help:      "Number of tasks completed, by outcome.",
	}, []string{"outcome"})

	// NotificationsCreated counts feed entries by notification type
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bartracker",
		Name:      "notifications_created_total",
		Help:      "Number of in-app notifications created, by type.",
	}, []string{"type"})

	// TelegramDeliveries counts external delivery attempts by outcome
	TelegramDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bartracker",
		Name:      "telegram_deliveries_total",
		Help:      "Number of Telegram delivery attempts, by outcome.",
	}, []string{"outcome"})
)
