package mode

import (
	"context"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/pipeline"
)

// Detect screens a single local video and prints the verdict.
func Detect(canxCtx context.Context, svcs pipeline.ServicesFactory, req Request, _ pipeline.Alerter) error {
	infer, err := svcs.NewInferenceSvc()
	if err != nil {
		renderFailure(req.Out, req.JSON, err)
		return err
	}
	defer infer.Close()

	// One-off detections are not archived
	svcs.StorageSvc = nil

	analysis, err := pipeline.Analyze(canxCtx, svcs, infer, model.Upload{
		Path:       req.Path,
		ReceivedAt: time.Now().UTC(),
	}, pipeline.WithSampleInterval(req.Interval))
	if err != nil {
		renderFailure(req.Out, req.JSON, err)
		return err
	}

	if req.JSON {
		return renderJSON(req.Out, analysis)
	}

	renderAnalysis(req.Out, analysis)
	return nil
}
