package departures

import (
	"context"
	"fmt"
	"github.com/rycus86/tuebus/pkg/client"
	"github.com/rycus86/tuebus/pkg/config"
	"github.com/rycus86/tuebus/pkg/document"
	"go.uber.org/zap"
	"net/url"
	"time"
)

// Scraper runs fetch, parse and extract for one stop at a time.
type Scraper struct {
	client    client.Client
	extractor *Extractor
	stops     *StopDirectory
	baseURL   string
	logger    *zap.Logger
}

func NewScraper(cli client.Client, cfg *config.Config, logger *zap.Logger, opts ...Option) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts = append([]Option{WithLocation(cfg.Location()), WithLogger(logger)}, opts...)

	return &Scraper{
		client:    cli,
		extractor: NewExtractor(cfg.Selectors, opts...),
		stops:     NewStopDirectory(cfg.Stops),
		baseURL:   cfg.BaseURL,
		logger:    logger,
	}
}

func (s *Scraper) StopURL(stop Stop) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", s.baseURL, err)
	}

	query := u.Query()
	query.Set("halt", stop.ID)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func (s *Scraper) Scrape(ctx context.Context, stopName string, filter LineFilter) (*Board, error) {
	stop := s.stops.Resolve(stopName)

	pageURL, err := s.StopURL(stop)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("stop", stop.ID), zap.String("url", pageURL))
	started := time.Now()

	raw, err := s.client.FetchPage(ctx, pageURL)
	if err != nil {
		log.Debug("fetch failed", zap.Error(err))
		return nil, err
	}

	doc, err := document.ParseBytes(raw)
	if err != nil {
		log.Debug("parse failed", zap.Error(err))
		return nil, err
	}

	found, err := s.extractor.Extract(doc, filter)
	if err != nil {
		log.Debug("departure listing missing", zap.Error(err))
		return nil, err
	}

	log.Debug("scrape finished", zap.Int("departures", len(found)), zap.Duration("took", time.Since(started)))

	return &Board{
		Stop:       stop,
		Departures: found,
	}, nil
}
