package departures

import (
	"errors"
	"github.com/rycus86/tuebus/pkg/client"
	"github.com/rycus86/tuebus/pkg/config"
	"github.com/rycus86/tuebus/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, time.March, 4, 14, 20, 0, 0, time.UTC)

func loadFixture(t *testing.T, name string) *document.Document {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)

	doc, err := document.ParseBytes(raw)
	require.NoError(t, err)

	return doc
}

func newTestExtractor() *Extractor {
	return NewExtractor(config.DefaultSelectors(),
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC))
}

func intPtr(v int) *int {
	return &v
}

func TestExtractKeepsPageOrder(t *testing.T) {
	found, err := newTestExtractor().Extract(loadFixture(t, "board.html"), nil)
	require.NoError(t, err)

	assert.Equal(t, []Departure{
		{Line: "5", Destination: "Waldhäuser-Ost", ScheduledTime: TimeOfDay{Text: "14:32", Parsed: true}, Delay: intPtr(2), Platform: "A4"},
		{Line: "12", Destination: "Lustnau Nord", ScheduledTime: TimeOfDay{Text: "14:35", Parsed: true}, Delay: intPtr(0), Platform: "B1"},
		{Line: "5", Destination: "Sand", ScheduledTime: TimeOfDay{Text: "14:41", Parsed: true}, Delay: nil, Platform: "A4"},
	}, found)
}

func TestExtractAppliesLineFilter(t *testing.T) {
	found, err := newTestExtractor().Extract(loadFixture(t, "board.html"), NewLineFilter([]string{"5"}))
	require.NoError(t, err)

	require.Len(t, found, 2)
	assert.Equal(t, "Waldhäuser-Ost", found[0].Destination)
	assert.Equal(t, "Sand", found[1].Destination)
}

func TestExtractFillsMissingFields(t *testing.T) {
	found, err := newTestExtractor().Extract(loadFixture(t, "partial.html"), nil)
	require.NoError(t, err)
	require.Len(t, found, 4)

	assert.Equal(t, Departure{
		Line: "3", Destination: "Herrlesberg", ScheduledTime: TimeOfDay{Text: "09:05", Parsed: true}, Platform: Unknown,
	}, found[0])

	assert.Equal(t, TimeOfDay{Text: "14:25", Parsed: true}, found[1].ScheduledTime)
	assert.Equal(t, "C", found[1].Platform)

	assert.Equal(t, Unknown, found[2].Destination)
	assert.Equal(t, TimeOfDay{Text: "14:50", Parsed: true}, found[2].ScheduledTime)
	assert.Equal(t, intPtr(4), found[2].Delay)

	assert.Equal(t, TimeOfDay{Text: "ca. 23 Uhr", Parsed: false}, found[3].ScheduledTime)
	assert.Nil(t, found[3].Delay)
	assert.Equal(t, Unknown, found[3].Platform)
}

func TestExtractMissingContainer(t *testing.T) {
	_, err := newTestExtractor().Extract(loadFixture(t, "layout_changed.html"), nil)
	require.Error(t, err)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, "div#vdfimain", extractionErr.Selector)
	assert.Equal(t, "Wartungsarbeiten", extractionErr.PageTitle)
	assert.Contains(t, err.Error(), "div#vdfimain")

	var fetchErr *client.FetchError
	var parseErr *document.ParseError
	assert.False(t, errors.As(err, &fetchErr))
	assert.False(t, errors.As(err, &parseErr))
}

func TestExtractEmptyBoardIsNotAnError(t *testing.T) {
	found, err := newTestExtractor().Extract(loadFixture(t, "empty_board.html"), nil)
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)
}

func TestExtractCustomSelectors(t *testing.T) {
	doc, err := document.ParseBytes([]byte(`<ul class="board">
<li><span class="l">2</span><span class="d">Hbf</span><span class="t">7:03</span></li>
<li><span class="l">4</span><span class="d">WHO</span><span class="t">7:10</span></li>
</ul>`))
	require.NoError(t, err)

	extractor := NewExtractor(config.Selectors{
		Container:   "ul.board",
		Row:         "li",
		Line:        "span.l",
		Destination: "span.d",
		Time:        "span.t",
	})

	found, err := extractor.Extract(doc, nil)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "2", found[0].Line)
	assert.Equal(t, "07:03", found[0].ScheduledTime.Text)
	assert.Equal(t, "WHO", found[1].Destination)
	assert.Equal(t, Unknown, found[1].Platform)
}

func TestLineFilter(t *testing.T) {
	var empty LineFilter
	assert.True(t, empty.Allows("5"))

	filter := NewLineFilter([]string{" 5 ", "", "N92"})
	assert.Len(t, filter, 2)
	assert.True(t, filter.Allows("5"))
	assert.True(t, filter.Allows("N92"))
	assert.False(t, filter.Allows("12"))
}

func TestExtractNestedLayoutTable(t *testing.T) {
	found, err := newTestExtractor().Extract(loadFixture(t, "nested.html"), nil)
	require.NoError(t, err)

	assert.Equal(t, []Departure{
		{Line: "5", Destination: "Sand", ScheduledTime: TimeOfDay{Text: "14:32", Parsed: true}, Platform: "A4"},
		{Line: "12", Destination: "WHO", ScheduledTime: TimeOfDay{Text: "14:35", Parsed: true}, Platform: "B1"},
	}, found)
}
