package model

// SendResult is the outcome for one recipient of a bulk job, carrying the
// number exactly as it was submitted.
type SendResult struct {
	Number  string `json:"number"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkSummary keeps the wire field names of the server it replaces; the
// frontends consuming it depend on them.
type BulkSummary struct {
	Total    int `json:"total"`
	Enviados int `json:"enviados"`
	Fallidos int `json:"fallidos"`
}

// BulkReport is the aggregate returned by POST /send-messages.
type BulkReport struct {
	Summary BulkSummary  `json:"summary"`
	Results []SendResult `json:"results"`
}

// ReportEntry pairs one self-sent message with the chronologically next
// counterpart message in the same chat, when there is one.
type ReportEntry struct {
	Number            string `json:"number"`
	Body              string `json:"body"`
	Timestamp         int64  `json:"timestamp"`
	Ack               int    `json:"ack"`
	ReadTimestamp     int64  `json:"readTimestamp,omitempty"`
	Response          string `json:"response,omitempty"`
	ResponseTimestamp int64  `json:"responseTimestamp,omitempty"`
}
