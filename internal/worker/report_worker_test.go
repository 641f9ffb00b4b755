package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/smkbandara/cbt-backend/internal/model"
)

func testReportWorker() *ReportWorker {
	return &ReportWorker{
		client: &http.Client{Timeout: 2 * time.Second},
		log:    zerolog.Nop(),
	}
}

func TestDeliverPostsPayload(t *testing.T) {
	var received model.ResultPayload
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload := &model.ResultPayload{
		Timestamp:         "2026-03-09T08:30:00Z",
		ParticipantNumber: "P-042",
		Name:              "Budi",
		ClassName:         "XII TKJ 2",
		Subject:           "Bahasa Inggris",
		Score:             75,
		Correct:           30,
		Wrong:             8,
		Violations:        2,
		Status:            model.SessionStatusCompleted,
	}

	w := testReportWorker()
	if err := w.deliver(context.Background(), srv.URL, payload); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("content type = %q", contentType)
	}
	if received != *payload {
		t.Errorf("received %+v, want %+v", received, *payload)
	}
}

func TestDeliverRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := testReportWorker()
	err := w.deliver(context.Background(), srv.URL, &model.ResultPayload{})
	if err == nil {
		t.Fatal("deliver succeeded against a 500 sink")
	}
}

func TestDeliverFailsOnDeadSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // Sink is already down.

	w := testReportWorker()
	if err := w.deliver(context.Background(), srv.URL, &model.ResultPayload{}); err == nil {
		t.Fatal("deliver succeeded against a dead sink")
	}
}

func TestResultPayloadWireFormat(t *testing.T) {
	data, err := json.Marshal(&model.ResultPayload{
		ParticipantNumber: "P-001",
		ClassName:         "XII RPL 1",
		Status:            model.SessionStatusTerminated,
	})
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	// The sink's ingestion script reads camelCase keys.
	for _, key := range []string{"timestamp", "participantNumber", "name", "className",
		"subject", "score", "correct", "wrong", "violations", "status"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("payload missing key %q", key)
		}
	}
}
