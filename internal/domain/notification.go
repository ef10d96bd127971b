package domain

import (
	"strings"
	"time"
)

// NotificationType tags what a notification is about.
type NotificationType string

const (
	NotificationTypeRide    NotificationType = "ride"
	NotificationTypeInvoice NotificationType = "invoice"
)

const invoiceMessagePrefix = "Invoice generated for appointment:"

// Notification is a one-shot message to a single user.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      NotificationType
	IsRead    bool
	CreatedAt time.Time
}

// InvoiceMessage builds the invoice-ready message embedding the appointment id.
func InvoiceMessage(appointmentID string) string {
	return invoiceMessagePrefix + appointmentID
}

// ParseInvoiceAppointmentID extracts the appointment id from an invoice message.
func ParseInvoiceAppointmentID(message string) (string, bool) {
	idx := strings.Index(message, invoiceMessagePrefix)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimSpace(message[idx+len(invoiceMessagePrefix):])
	if i := strings.IndexAny(rest, " \t\n"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}
