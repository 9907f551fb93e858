package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"golang.org/x/xerrors"
)

type timedService struct {
	CanxCtx       context.Context
	SubsCtx       context.Context
	SubsCancel    context.CancelFunc
	UploadChannel chan []model.Upload
	CfgSvc        config.IService
	Accept        Accept

	mu      sync.Mutex
	pending map[string]int64
	seen    map[string]time.Time
}

// NewTimed scans the inbox folder periodically and delivers accepted files
// once their size has stopped changing between two scans, so partially
// written uploads are not picked up. Each file is delivered once per
// modification time.
func NewTimed(canxCtx context.Context, cfgSvc config.IService, accept Accept) IService {
	return &timedService{
		CanxCtx:       canxCtx,
		CfgSvc:        cfgSvc,
		Accept:        accept,
		UploadChannel: make(chan []model.Upload),
		pending:       map[string]int64{},
		seen:          map[string]time.Time{},
	}
}

func (svc *timedService) Publish(uploads []model.Upload) error {
	if len(uploads) == 0 {
		return nil
	}

	select {
	case <-svc.CanxCtx.Done():
		return svc.CanxCtx.Err()
	case svc.UploadChannel <- uploads:
		return nil
	}
}

func (svc *timedService) Subscribe() (<-chan []model.Upload, error) {
	if svc.SubsCtx != nil {
		lgr.Logger.Error(
			"inbox timed service. Already subscribed. Unsubscribe first",
		)
		return nil, xerrors.New("inbox timed service. child context is not nil. Unsubscribe first")
	}

	if err := os.MkdirAll(svc.CfgSvc.GetInboxFolder(), 0755); err != nil {
		return nil, err
	}

	subsContext, subsCancel := context.WithCancel(svc.CanxCtx)
	svc.SubsCtx = subsContext
	svc.SubsCancel = subsCancel

	go func(subsCtx context.Context) {
		period := time.Duration(svc.CfgSvc.GetInboxPeriodicTimeout()) * time.Second

		for {
			select {
			case <-subsCtx.Done():
				lgr.Logger.Info(
					"inbox timed service subscription cancelled",
				)
				return
			case <-time.After(period):
				uploads, err := svc.scan()
				if err != nil {
					lgr.Logger.Error("inbox scan failed",
						slog.String("folder", svc.CfgSvc.GetInboxFolder()),
						slog.Any("error", err),
					)
					continue
				}

				if len(uploads) == 0 {
					continue
				}

				select {
				case <-subsCtx.Done():
					return
				case svc.UploadChannel <- uploads:
				}
			}
		}
	}(subsContext)

	return svc.UploadChannel, nil
}

func (svc *timedService) Unsubscribe() error {
	if svc.SubsCtx == nil {
		return xerrors.New("No subscribed yet. Subscribe first")
	}

	svc.cleanup()
	return nil
}

func (svc *timedService) Close() error {
	svc.cleanup()
	return nil
}

func (svc *timedService) cleanup() {
	if svc.SubsCancel != nil {
		svc.SubsCancel()
		svc.SubsCtx = nil
		svc.SubsCancel = nil
	}
}

// scan returns files that were stable since the previous scan and have not
// been delivered for their current modification time.
func (svc *timedService) scan() ([]model.Upload, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	folder := svc.CfgSvc.GetInboxFolder()
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	uploads := []model.Upload{}
	present := map[string]bool{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !svc.Accept(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(folder, entry.Name())
		present[path] = true

		if modTime, ok := svc.seen[path]; ok && modTime.Equal(info.ModTime()) {
			continue
		}

		size, ok := svc.pending[path]
		svc.pending[path] = info.Size()
		if !ok || size != info.Size() {
			continue
		}

		delete(svc.pending, path)
		svc.seen[path] = info.ModTime()
		uploads = append(uploads, model.Upload{
			Path:       path,
			Filename:   entry.Name(),
			ReceivedAt: time.Now().UTC(),
		})
	}

	for path := range svc.pending {
		if !present[path] {
			delete(svc.pending, path)
		}
	}

	return uploads, nil
}
