// Package metrics — счётчики prometheus для жизненного цикла сообщений.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatlog",
		Name:      "messages_created_total",
		Help:      "Messages persisted by create.",
	})

	MessagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatlog",
		Name:      "messages_deleted_total",
		Help:      "Messages removed by delete-one and delete-all.",
	})

	AttachmentBytesStored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatlog",
		Name:      "attachment_bytes_stored_total",
		Help:      "Attachment bytes written to the blob store.",
	})

	// CleanupFailures — вложения, оставшиеся в хранилище после удаления сообщения.
	CleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatlog",
		Name:      "attachment_cleanup_failures_total",
		Help:      "Blob deletions that failed during message deletion.",
	})

	StoreTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatlog",
		Name:      "store_timeouts_total",
		Help:      "Store calls that exceeded the configured timeout.",
	}, []string{"store"})
)
