package importer

import (
	"context"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

// Notifier delivers acknowledgements and results back to whoever submitted
// the import request. Ack confirms the request was accepted for processing;
// Notify delivers the final outcome.
type Notifier interface {
	Ack(ctx context.Context, req models.ImportRequest) error
	Notify(ctx context.Context, req models.ImportRequest, outcome models.ImportOutcome) error
}

// LogNotifier writes acknowledgements and outcomes to the log. It stands in
// when no front-end transport is wired up.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

// Ack logs the acknowledgement
func (n *LogNotifier) Ack(_ context.Context, req models.ImportRequest) error {
	n.logger.InfoWith(logger.Import, "Accepted import request %s from %s: %s",
		req.CorrelationID, req.RequesterID, req.URL)
	return nil
}

// Notify logs the outcome
func (n *LogNotifier) Notify(_ context.Context, req models.ImportRequest, outcome models.ImportOutcome) error {
	n.logger.InfoWith(logger.Import, "Import %s finished: %s", req.CorrelationID, outcome.String())
	return nil
}
