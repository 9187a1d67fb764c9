package ports

import (
	"context"
	"time"
)

// AuditEntry is one recorded bank exchange. Documents are masked before recording.
type AuditEntry struct {
	Bank            string
	TransactionType TransactionType
	OrderID         string
	RequestData     string
	ResponseData    string
	IsSuccess       bool
	ResponseCode    string
	Error           string
	Elapsed         time.Duration
	CreatedAt       time.Time
}

// AuditRecorder persists bank exchanges for later inspection
type AuditRecorder interface {
	Record(ctx context.Context, entry *AuditEntry) error
}
