package model

// ResultPayload is the one-shot record delivered to the reporting sink for
// every session that reaches a terminal state. Field names match the sink's
// ingestion contract (a Google Apps Script style doPost endpoint).
type ResultPayload struct {
	Timestamp         string        `json:"timestamp"`
	ParticipantNumber string        `json:"participantNumber"`
	Name              string        `json:"name"`
	ClassName         string        `json:"className"`
	Subject           string        `json:"subject"`
	Score             int           `json:"score"`
	Correct           int           `json:"correct"`
	Wrong             int           `json:"wrong"`
	Violations        int           `json:"violations"`
	Status            SessionStatus `json:"status"`
}
