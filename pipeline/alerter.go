package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/lgr"
)

// SimpleAlerter logs every video judged fake and forwards it to the webhook.
func SimpleAlerter(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan AlertData {
	in := make(chan AlertData, 100)

	go func() {
		startTime := time.Now().Unix()
		alerts := 0
		errors := 0

		defer func() {
			statsStream <- model.AlerterStats{
				Name:   "simpleAlerter",
				Alerts: alerts,
				Errors: errors,
				Uptime: time.Now().Unix() - startTime,
			}
		}()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"alerter context cancelled",
				)
				return

			case alert := <-in:
				alerts++
				analysis := alert.Analysis

				lgr.Logger.Warn(
					"fake video detected",
					slog.String("id", analysis.ID),
					slog.String("file", analysis.Filename),
					slog.String("hash", analysis.Hash),
					slog.Float64("fakePercent", analysis.FakePercent),
					slog.Time("timestamp", alert.Timestamp),
				)

				payload := map[string]interface{}{
					"id":           analysis.ID,
					"source":       analysis.Filename,
					"hash":         analysis.Hash,
					"fakePercent":  analysis.FakePercent,
					"frameCount":   analysis.Result.FrameCount,
					"registered":   analysis.Ledger.Registered,
					"archiveUrl":   analysis.ArchiveURL,
					"timestamp":    alert.Timestamp.Format(time.RFC3339),
					"isFake":       analysis.Result.IsFake,
					"avgFakeScore": analysis.Result.AverageFakeProbability,
				}

				if err := svcs.WebhookSvc.Post(canx, payload); err != nil {
					errors++
					errorStream <- model.GenError("simple_alerter",
						err,
						map[string]interface{}{"id": analysis.ID},
						"error posting alert webhook")
				}
			}
		}
	}()

	return in
}
