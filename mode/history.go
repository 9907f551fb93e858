package mode

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/pipeline"
)

// History lists stored analyses, newest first. A request hash narrows the
// listing to the latest analysis of that content.
func History(_ context.Context, svcs pipeline.ServicesFactory, req Request, _ pipeline.Alerter) error {
	var analyses []model.VideoAnalysis

	if req.Hash != "" {
		analysis, err := svcs.DataSvc.RetrieveAnalysisByHash(req.Hash)
		if err != nil {
			renderFailure(req.Out, req.JSON, err)
			return err
		}
		analyses = append(analyses, analysis)
	} else {
		all, err := svcs.DataSvc.RetrieveAnalyses()
		if err != nil {
			renderFailure(req.Out, req.JSON, err)
			return err
		}
		analyses = all
	}

	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].AnalyzedAt.After(analyses[j].AnalyzedAt)
	})

	if req.Limit > 0 && len(analyses) > req.Limit {
		analyses = analyses[:req.Limit]
	}

	if req.JSON {
		return renderJSON(req.Out, analyses)
	}

	if len(analyses) == 0 {
		fmt.Fprintln(req.Out, "no analyses recorded")
		return nil
	}

	for _, a := range analyses {
		verdict := realColor.Sprint("REAL")
		if a.Result.IsFake {
			verdict = fakeColor.Sprint("FAKE")
		}
		fmt.Fprintf(req.Out, "%s  %s  %6.2f%%  %3d frames  %s  %s\n",
			a.AnalyzedAt.Local().Format(time.DateTime), verdict, a.FakePercent,
			a.Result.FrameCount, a.Hash[:min(12, len(a.Hash))], a.Filename)
	}
	return nil
}
