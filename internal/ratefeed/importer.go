package ratefeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/iwvelando/loan-compare/internal/store"
	"github.com/iwvelando/loan-compare/pkg/datetime"
)

// Updater is the part of the store the importer writes to.
type Updater interface {
	UpdateBaseRate(ctx context.Context, shortName string, rate float64, on civil.Date) error
}

// Report summarises one import run.
type Report struct {
	Updated []string
	// Unknown lists short names in the feed that match no stored bank.
	Unknown []string
}

// Importer loads a rate page and applies its quotes to the store.
type Importer struct {
	updater Updater
	client  *http.Client
	column  string
	logger  *zap.Logger
	now     func() time.Time
}

// NewImporter creates an importer reading the given rate column. A nil
// client uses a client with a 30 second timeout.
func NewImporter(updater Updater, client *http.Client, column string, logger *zap.Logger) *Importer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{updater: updater, client: client, column: column, logger: logger, now: time.Now}
}

// Import loads source, which is either an http(s) URL or a local file path,
// and updates the base rate of every listed bank.
func (i *Importer) Import(ctx context.Context, source string) (Report, error) {
	doc, err := i.load(ctx, source)
	if err != nil {
		return Report{}, err
	}

	quotes, err := Parse(doc, i.column, datetime.Today(i.now()))
	if err != nil {
		return Report{}, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	i.logger.Debug("parsed rate feed",
		zap.String("op", "ratefeed.Import"),
		zap.String("source", source),
		zap.Int("quotes", len(quotes)),
	)

	return i.Apply(ctx, quotes)
}

// Apply writes quotes to the store. Quotes for unknown banks are reported,
// not treated as errors.
func (i *Importer) Apply(ctx context.Context, quotes []Quote) (Report, error) {
	var report Report
	for _, q := range quotes {
		err := i.updater.UpdateBaseRate(ctx, q.ShortName, q.Rate, q.On)
		switch {
		case errors.Is(err, store.ErrNotFound):
			i.logger.Warn("rate feed lists an unknown bank",
				zap.String("op", "ratefeed.Apply"),
				zap.String("bank", q.ShortName),
			)
			report.Unknown = append(report.Unknown, q.ShortName)
		case err != nil:
			return report, fmt.Errorf("failed to update base rate for %s: %w", q.ShortName, err)
		default:
			i.logger.Info("updated base rate",
				zap.String("op", "ratefeed.Apply"),
				zap.String("bank", q.ShortName),
				zap.Float64("rate", q.Rate),
				zap.String("on", q.On.String()),
			)
			report.Updated = append(report.Updated, q.ShortName)
		}
	}
	return report, nil
}

func (i *Importer) load(ctx context.Context, source string) (*html.Node, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		doc, err := htmlquery.LoadDoc(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read rate page %s: %w", source, err)
		}
		return doc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", source, err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed reading rate page %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed reading rate page %s: status %s", source, resp.Status)
	}
	doc, err := htmlquery.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate page %s: %w", source, err)
	}
	return doc, nil
}
