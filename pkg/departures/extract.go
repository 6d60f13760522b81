package departures

import (
	"fmt"
	"github.com/PuerkitoBio/goquery"
	"github.com/rycus86/tuebus/pkg/config"
	"github.com/rycus86/tuebus/pkg/document"
	"go.uber.org/zap"
	"time"
)

// ExtractionError means the page was fetched and parsed, but its structure did not
// match the expected markup.
type ExtractionError struct {
	Selector  string
	PageTitle string
}

func (e *ExtractionError) Error() string {
	if e.PageTitle != "" {
		return fmt.Sprintf("departure listing not found: no element matches %q (page title %q), the page layout may have changed", e.Selector, e.PageTitle)
	}
	return fmt.Sprintf("departure listing not found: no element matches %q, the page layout may have changed", e.Selector)
}

type Extractor struct {
	selectors config.Selectors
	location  *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

type Option func(*Extractor)

func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) {
		if loc != nil {
			e.location = loc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewExtractor(selectors config.Selectors, opts ...Option) *Extractor {
	e := &Extractor{
		selectors: selectors,
		location:  time.Local,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract makes a single pass over the document and returns the departures in page
// order, keeping only the lines allowed by filter.
func (e *Extractor) Extract(doc *document.Document, filter LineFilter) ([]Departure, error) {
	container := doc.Find(e.selectors.Container).First()
	if container.Length() == 0 {
		return nil, &ExtractionError{Selector: e.selectors.Container, PageTitle: doc.Title()}
	}

	now := e.now().In(e.location)
	result := []Departure{}
	skipped := 0

	container.Find(e.selectors.Row).Each(func(i int, row *goquery.Selection) {
		// layout rows wrapping a nested listing only repeat their inner rows' cells
		if row.Find(e.selectors.Row).Length() > 0 {
			skipped++
			return
		}

		departure, ok := e.extractRow(i, row, now)
		if !ok {
			skipped++
			return
		}

		if !filter.Allows(departure.Line) {
			return
		}

		result = append(result, departure)
	})

	e.logger.Debug("departures extracted",
		zap.Int("kept", len(result)),
		zap.Int("skipped_rows", skipped),
		zap.Int("filters", len(filter)))

	return result, nil
}

func (e *Extractor) extractRow(index int, row *goquery.Selection, now time.Time) (Departure, bool) {
	line, hasLine := cellText(row, e.selectors.Line)
	destination, hasDestination := cellText(row, e.selectors.Destination)
	timeText, hasTime := cellText(row, e.selectors.Time)
	delayText, hasDelay := cellText(row, e.selectors.Delay)
	platform, hasPlatform := cellText(row, e.selectors.Platform)

	if !hasLine && !hasDestination && !hasTime && !hasDelay && !hasPlatform {
		// header or separator row
		return Departure{}, false
	}

	scheduled, inlineDelay := parseTime(timeText, now)
	if !scheduled.Parsed && scheduled.Text != Unknown {
		e.logger.Debug("keeping unparsed departure time", zap.Int("row", index), zap.String("text", scheduled.Text))
	}

	delay := inlineDelay
	if delayText != "" {
		if parsed, ok := parseDelay(delayText); ok {
			delay = parsed
		} else {
			e.logger.Debug("ignoring unparsed delay", zap.Int("row", index), zap.String("text", delayText))
		}
	}

	return Departure{
		Line:          orUnknown(line),
		Destination:   orUnknown(destination),
		ScheduledTime: scheduled,
		Delay:         delay,
		Platform:      orUnknown(platform),
	}, true
}

func cellText(row *goquery.Selection, selector string) (string, bool) {
	if selector == "" {
		return "", false
	}
	cell := row.Find(selector).First()
	if cell.Length() == 0 {
		return "", false
	}
	return cleanText(cell.Text()), true
}

// LineFilter keeps departures of the listed lines. An empty filter keeps everything.
type LineFilter map[string]struct{}

func NewLineFilter(lines []string) LineFilter {
	filter := LineFilter{}
	for _, line := range lines {
		if line = cleanText(line); line != "" {
			filter[line] = struct{}{}
		}
	}
	return filter
}

func (f LineFilter) Allows(line string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[line]
	return ok
}
