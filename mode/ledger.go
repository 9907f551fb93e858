package mode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/khaledhikmat/dfd-go/pipeline"
	"github.com/khaledhikmat/dfd-go/service/ledger"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"github.com/khaledhikmat/dfd-go/service/metrics"
)

// hashOf returns the explicit hash of the request or the content hash of its
// file.
func hashOf(req Request) (string, error) {
	if req.Hash != "" {
		return strings.ToLower(strings.TrimSpace(req.Hash)), nil
	}
	return pipeline.ContentHash(req.Path)
}

// Verify hashes a file and reports whether the ledger knows it. No
// detection runs.
func Verify(canxCtx context.Context, svcs pipeline.ServicesFactory, req Request, _ pipeline.Alerter) error {
	hash, err := hashOf(req)
	if err != nil {
		renderFailure(req.Out, req.JSON, err)
		return err
	}

	record, err := svcs.LedgerSvc.Lookup(canxCtx, hash)
	if err != nil {
		metrics.LedgerRequestsTotal.WithLabelValues("lookup", "error").Inc()
		lgr.Logger.Error("ledger lookup failed", slog.String("hash", hash), slog.Any("error", err))
		renderFailure(req.Out, req.JSON, err)
		return err
	}
	metrics.LedgerRequestsTotal.WithLabelValues("lookup", "ok").Inc()

	if req.JSON {
		return renderJSON(req.Out, record)
	}

	renderField(req.Out, "SHA-256", "%s", hash)
	renderLedger(req.Out, record, "")
	return nil
}

// Register records the file's content hash on the ledger as authentic.
func Register(canxCtx context.Context, svcs pipeline.ServicesFactory, req Request, _ pipeline.Alerter) error {
	hash, err := hashOf(req)
	if err != nil {
		renderFailure(req.Out, req.JSON, err)
		return err
	}

	receipt, err := svcs.LedgerSvc.Register(canxCtx, hash, req.Description)
	if err != nil {
		metrics.LedgerRequestsTotal.WithLabelValues("register", "error").Inc()
		if errors.Is(err, ledger.ErrAlreadyRegistered) {
			warnColor.Fprintln(req.Out, "Video already registered: "+hash)
			return err
		}
		renderFailure(req.Out, req.JSON, err)
		return err
	}
	metrics.LedgerRequestsTotal.WithLabelValues("register", "ok").Inc()

	lgr.Logger.Info("video registered",
		slog.String("hash", hash),
		slog.String("txId", receipt.TxID),
		slog.Int64("block", receipt.BlockNumber),
	)

	if req.JSON {
		return renderJSON(req.Out, receipt)
	}

	renderField(req.Out, "SHA-256", "%s", hash)
	renderField(req.Out, "Tx", "%s", receipt.TxID)
	renderField(req.Out, "Block", "%d", receipt.BlockNumber)
	renderField(req.Out, "Status", "%s", receipt.Status)
	return nil
}

// Count prints the number of registered videos.
func Count(canxCtx context.Context, svcs pipeline.ServicesFactory, req Request, _ pipeline.Alerter) error {
	n, err := svcs.LedgerSvc.Count(canxCtx)
	if err != nil {
		renderFailure(req.Out, req.JSON, err)
		return err
	}

	if req.JSON {
		return renderJSON(req.Out, map[string]int{"registered": n})
	}

	fmt.Fprintf(req.Out, "%d registered videos\n", n)
	return nil
}
