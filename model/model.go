package model

import (
	"fmt"
	"runtime/debug"
	"time"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// FrameScore is the fake probability of one sampled frame.
type FrameScore struct {
	Index       int     `json:"index"`
	Probability float64 `json:"probability"`
}

// DetectionResult is the sole output of one detection run.
// FrameCount always equals the number of frames that were scored.
type DetectionResult struct {
	AverageFakeProbability float64 `json:"avgFakeProbability"`
	IsFake                 bool    `json:"isFake"`
	FrameCount             int     `json:"frameCount"`
}

// LedgerRecord is what the registry knows about a content hash.
type LedgerRecord struct {
	Hash         string    `json:"hash"`
	Registered   bool      `json:"registered"`
	Description  string    `json:"description"`
	Uploader     string    `json:"uploader"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type Receipt struct {
	TxID        string    `json:"txId"`
	Hash        string    `json:"hash"`
	BlockNumber int64     `json:"blockNumber"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

type Upload struct {
	Path       string    `json:"path"`
	Filename   string    `json:"filename"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type VideoAnalysis struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	Path        string          `json:"path"`
	Hash        string          `json:"hash"`
	Result      DetectionResult `json:"result"`
	FakePercent float64         `json:"fakePercent"`
	Ledger      LedgerRecord    `json:"ledger"`
	LedgerError string          `json:"ledgerError,omitempty"`
	ArchiveURL  string          `json:"archiveUrl,omitempty"`
	Interval    int             `json:"interval"`
	AnalyzedAt  time.Time       `json:"analyzedAt"`
}

type AlerterStats struct {
	Name      string `json:"name"`
	Alerts    int    `json:"alerts"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type WorkerStats struct {
	Name        string  `json:"name"`
	Worker      int     `json:"worker"`
	Videos      int     `json:"videos"`
	Frames      int     `json:"frames"`
	Fakes       int     `json:"fakes"`
	Errors      int     `json:"errors"`
	Uptime      int64   `json:"uptime"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

type WatcherStats struct {
	TotalUploads     int64 `json:"uploads"`
	TotalDispatched  int64 `json:"dispatched"`
	TotalDropped     int64 `json:"dropped"`
	TotalRunningTime int64 `json:"runningTime"`
	Timestamp        int64 `json:"timestamp"`
}
