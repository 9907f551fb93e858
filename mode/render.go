package mode

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/pipeline"
)

var (
	fakeColor  = color.New(color.FgRed, color.Bold)
	realColor  = color.New(color.FgGreen, color.Bold)
	labelColor = color.New(color.FgCyan)
	warnColor  = color.New(color.FgYellow)
)

func renderJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderField(out io.Writer, label, format string, args ...interface{}) {
	labelColor.Fprintf(out, "%-12s", label+":")
	fmt.Fprintf(out, format+"\n", args...)
}

func renderFailure(out io.Writer, asJSON bool, err error) {
	if asJSON {
		_ = renderJSON(out, map[string]string{
			"error":  err.Error(),
			"reason": pipeline.Reason(err),
		})
		return
	}
	fakeColor.Fprintln(out, "Error: "+pipeline.Reason(err))
}

func renderLedger(out io.Writer, record model.LedgerRecord, ledgerErr string) {
	switch {
	case ledgerErr != "":
		warnColor.Fprintf(out, "%-12s", "Ledger:")
		fmt.Fprintf(out, "unavailable (%s)\n", ledgerErr)
	case record.Registered:
		renderField(out, "Ledger", "registered %q by %s on %s",
			record.Description, record.Uploader, record.RegisteredAt.Format(time.RFC3339))
	default:
		renderField(out, "Ledger", "not registered")
	}
}

func renderAnalysis(out io.Writer, analysis model.VideoAnalysis) {
	renderField(out, "File", "%s", analysis.Filename)
	renderField(out, "SHA-256", "%s", analysis.Hash)

	labelColor.Fprintf(out, "%-12s", "Verdict:")
	if analysis.Result.IsFake {
		fakeColor.Fprint(out, "FAKE")
	} else {
		realColor.Fprint(out, "REAL")
	}
	fmt.Fprintf(out, " (%.2f%% fake probability over %d frames, every %d)\n",
		analysis.FakePercent, analysis.Result.FrameCount, analysis.Interval)

	renderLedger(out, analysis.Ledger, analysis.LedgerError)
	if analysis.ArchiveURL != "" {
		renderField(out, "Archive", "%s", analysis.ArchiveURL)
	}
}
