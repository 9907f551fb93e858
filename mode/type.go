package mode

import (
	"context"
	"io"
	"log/slog"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/pipeline"
	"github.com/khaledhikmat/dfd-go/service/data"
	"github.com/khaledhikmat/dfd-go/service/lgr"
)

// Request carries the command-line arguments of one mode invocation.
type Request struct {
	Path        string
	Hash        string
	Description string
	// Zero means use the configured sampling interval
	Interval int
	Limit    int
	JSON     bool
	Out      io.Writer
}

type Processor func(canxCtx context.Context,
	svcs pipeline.ServicesFactory,
	req Request,
	alerter pipeline.Alerter) error

func procStats(datasvc data.IService, stats interface{}) {
	switch stats := stats.(type) {
	case model.WatcherStats:
		procWatcherStats(datasvc, stats)
	case model.WorkerStats:
		procWorkerStats(datasvc, stats)
	case model.AlerterStats:
		procAlerterStats(datasvc, stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procWatcherStats(datasvc data.IService, stats model.WatcherStats) {
	err := datasvc.NewWatcherStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store watcher stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procWorkerStats(datasvc data.IService, stats model.WorkerStats) {
	err := datasvc.NewWorkerStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store worker stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procAlerterStats(datasvc data.IService, stats model.AlerterStats) {
	err := datasvc.NewAlerterStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store alerter stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
