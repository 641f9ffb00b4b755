package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/smkbandara/cbt-backend/internal/config"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/service"
)

// ReportWorker consumes report_results_queue and POSTs each terminal result
// to the configured webhook once. Delivery is fire-and-forget: a failed POST
// is logged and dropped, never retried, so a dead sink cannot back up the
// queue or double-report a session.
type ReportWorker struct {
	rdb      *redis.Client
	settings *service.SettingService
	client   *http.Client
	log      zerolog.Logger
}

// NewReportWorker creates a new ReportWorker.
func NewReportWorker(rdb *redis.Client, settings *service.SettingService, cfg *config.Config, log zerolog.Logger) *ReportWorker {
	return &ReportWorker{
		rdb:      rdb,
		settings: settings,
		client:   &http.Client{Timeout: cfg.ReportTimeout},
		log:      log.With().Str("component", "report_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ReportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ReportWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.ReportResultsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload model.ResultPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	url, err := w.settings.ReportWebhookURL(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Webhook URL lookup failed, dropping report")
		return
	}
	if url == "" {
		w.log.Debug().
			Str("participant", payload.ParticipantNumber).
			Msg("No webhook configured, dropping report")
		return
	}

	if err := w.deliver(ctx, url, &payload); err != nil {
		w.log.Error().Err(err).
			Str("participant", payload.ParticipantNumber).
			Str("subject", payload.Subject).
			Msg("Report delivery failed, dropping")
		return
	}

	w.log.Info().
		Str("participant", payload.ParticipantNumber).
		Str("subject", payload.Subject).
		Int("score", payload.Score).
		Msg("Result reported")
}

func (w *ReportWorker) deliver(ctx context.Context, url string, payload *model.ResultPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
