package data

import (
	"errors"

	"github.com/khaledhikmat/dfd-go/model"
)

var ErrNotFound = errors.New("not found")

type IService interface {
	NewAnalysis(analysis model.VideoAnalysis) error
	RetrieveAnalyses() ([]model.VideoAnalysis, error)
	// RetrieveAnalysisByHash returns the most recent analysis of a content hash
	RetrieveAnalysisByHash(hash string) (model.VideoAnalysis, error)

	NewError(err interface{}) error
	NewWatcherStats(stats model.WatcherStats) error
	NewWorkerStats(stats model.WorkerStats) error
	NewAlerterStats(stats model.AlerterStats) error

	Close() error
}

type errorRecord struct {
	Timestamp  int64                  `json:"timestamp"`
	Processor  string                 `json:"processor"`
	Inner      string                 `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func toErrorRecord(err interface{}) errorRecord {
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
	default:
		customErr.Processor = "N/A"
		customErr.Message = "unknown error"
		customErr.StackTrace = "N/A"
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	return errorRecord{
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
}
