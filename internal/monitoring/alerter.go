package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phonematch-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLowSuccessRate  AlertType = "low_success_rate"
	AlertProcessingError AlertType = "processing_error_rate"
	AlertRunFailed       AlertType = "run_failed"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// Rate thresholds only apply once MinRecords rows were processed.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()
	enough := snap.Processed >= a.cfg.MinRecords && snap.Processed > 0

	if enough && a.cfg.MinSuccessRate > 0 && snap.SuccessRate < a.cfg.MinSuccessRate {
		alerts = append(alerts, Alert{
			Type:     AlertLowSuccessRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Match rate %.1f%% below threshold %.1f%% (%d matched / %d processed in last %dh)",
				snap.SuccessRate*100, a.cfg.MinSuccessRate*100,
				snap.Matched, snap.Processed, snap.LookbackHours,
			),
			Details: map[string]any{
				"success_rate": snap.SuccessRate,
				"threshold":    a.cfg.MinSuccessRate,
				"matched":      snap.Matched,
				"processed":    snap.Processed,
			},
			Timestamp: now,
		})
	}

	if enough && a.cfg.MaxErrorRate > 0 && snap.ErrorRate > a.cfg.MaxErrorRate {
		alerts = append(alerts, Alert{
			Type:     AlertProcessingError,
			Severity: "high",
			Message: fmt.Sprintf(
				"Processing error rate %.1f%% exceeds threshold %.1f%% (%d errors in last %dh)",
				snap.ErrorRate*100, a.cfg.MaxErrorRate*100,
				snap.ProcessingErrors, snap.LookbackHours,
			),
			Details: map[string]any{
				"error_rate": snap.ErrorRate,
				"threshold":  a.cfg.MaxErrorRate,
				"errors":     snap.ProcessingErrors,
			},
			Timestamp: now,
		})
	}

	if snap.RunsFailed > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailed,
			Severity: "high",
			Message:  fmt.Sprintf("%d run(s) failed in last %dh", snap.RunsFailed, snap.LookbackHours),
			Details: map[string]any{
				"failed_count": snap.RunsFailed,
				"total_runs":   snap.RunsTotal,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
