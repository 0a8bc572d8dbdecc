package logging

import (
	"encoding/json"
	"log"
	"time"
)

const Service = "checkout-service"

type Fields struct {
	Service    string `json:"service"`
	OrderID    string `json:"order_id,omitempty"`
	PaymentID  string `json:"payment_id,omitempty"`
	ProductID  string `json:"product_id,omitempty"`
	Step       string `json:"step,omitempty"`
	Status     string `json:"status,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Log writes fields as a single JSON line through the standard logger.
func Log(fields Fields) {
	if fields.Service == "" {
		fields.Service = Service
	}
	data, err := json.Marshal(struct {
		Fields
		Timestamp string `json:"timestamp"`
	}{fields, time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		log.Printf("{\"service\":%q,\"status\":\"log_error\",\"error\":%q}", fields.Service, err.Error())
		return
	}
	log.Print(string(data))
}

// Suspicious marks an event that may indicate tampering or an integrity problem.
func Suspicious(fields Fields) {
	fields.Status = "suspicious"
	Log(fields)
}
