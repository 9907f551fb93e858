package pipeline

import (
	"context"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/data"
	"github.com/khaledhikmat/dfd-go/service/inbox"
	"github.com/khaledhikmat/dfd-go/service/inference"
	"github.com/khaledhikmat/dfd-go/service/ledger"
	"github.com/khaledhikmat/dfd-go/service/storage"
	"github.com/khaledhikmat/dfd-go/service/webhook"
	"gocv.io/x/gocv"
)

// Decoder is an open decoding session over one video file.
// TotalFrames is what the container claims and may disagree with the number
// of frames Read actually delivers.
type Decoder interface {
	TotalFrames() int
	Read(dst *gocv.Mat) bool
	Close() error
}

// Opener opens a decoder for a path. OpenVideo is the production opener.
type Opener func(path string) (Decoder, error)

// InferenceFactory loads a fresh classifier handle.
type InferenceFactory func() (inference.IService, error)

type ServicesFactory struct {
	CfgSvc     config.IService
	DataSvc    data.IService
	InboxSvc   inbox.IService
	StorageSvc storage.IService
	LedgerSvc  ledger.IService
	WebhookSvc webhook.IService
	// Each caller that runs detections concurrently must load its own handle
	NewInferenceSvc InferenceFactory
}

type AlertData struct {
	Analysis  model.VideoAnalysis
	Timestamp time.Time
}

// Signature of alerter function
type Alerter func(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan AlertData
