package server

import (
	"context"
	"encoding/json"
	"github.com/PuerkitoBio/goquery"
	"github.com/rycus86/tuebus/pkg/client"
	"github.com/rycus86/tuebus/pkg/departures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubSupplier struct {
	board  *departures.Board
	err    error
	stop   string
	filter departures.LineFilter
}

func (s *stubSupplier) Scrape(ctx context.Context, stopName string, filter departures.LineFilter) (*departures.Board, error) {
	s.stop = stopName
	s.filter = filter
	return s.board, s.err
}

func sampleBoard() *departures.Board {
	delay := 1
	return &departures.Board{
		Stop: departures.Stop{ID: "1000", Name: "Hauptbahnhof", Platform: "A4"},
		Departures: []departures.Departure{
			{Line: "5", Destination: "Sand <Nord>", ScheduledTime: departures.TimeOfDay{Text: "14:41", Parsed: true}, Delay: &delay, Platform: "A4"},
		},
	}
}

func serve(t *testing.T, supplier BoardSupplier, target, accept string) *httptest.ResponseRecorder {
	t.Helper()
	return serveWithLines(t, supplier, nil, target, accept)
}

func serveWithLines(t *testing.T, supplier BoardSupplier, defaultLines []string, target, accept string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(http.MethodGet, target, nil)
	if accept != "" {
		request.Header.Set("Accept", accept)
	}
	recorder := httptest.NewRecorder()

	NewRouter(supplier, defaultLines, nil).ServeHTTP(recorder, request)
	return recorder
}

func TestDeparturesJSON(t *testing.T) {
	supplier := &stubSupplier{board: sampleBoard()}

	resp := serve(t, supplier, "/departures/Hauptbahnhof?line=5&line=12", "application/json")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	var got []departures.Departure
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, sampleBoard().Departures, got)

	assert.Equal(t, "Hauptbahnhof", supplier.stop)
	assert.True(t, supplier.filter.Allows("5"))
	assert.True(t, supplier.filter.Allows("12"))
	assert.False(t, supplier.filter.Allows("3"))
}

func TestDeparturesHTMLIsEscaped(t *testing.T) {
	resp := serve(t, &stubSupplier{board: sampleBoard()}, "/departures/1000", "text/html")
	require.Equal(t, http.StatusOK, resp.Code)

	body := resp.Body.String()
	assert.Contains(t, body, "<title>Departures from Hauptbahnhof</title>")
	assert.Contains(t, body, "Sand &lt;Nord&gt;")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)

	cells := doc.Find("tr").Eq(1).Find("td")
	require.Equal(t, 5, cells.Length())
	assert.Equal(t, "5", cells.Eq(0).Text())
	assert.Equal(t, "Sand <Nord>", cells.Eq(1).Text())
	assert.Equal(t, "14:41", cells.Eq(2).Text())
	assert.Equal(t, "+1", cells.Eq(3).Text())
	assert.Equal(t, "A4", cells.Eq(4).Text())
}

func TestDeparturesDefaultLines(t *testing.T) {
	supplier := &stubSupplier{board: sampleBoard()}

	resp := serveWithLines(t, supplier, []string{"5"}, "/departures/1000", "application/json")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, supplier.filter.Allows("5"))
	assert.False(t, supplier.filter.Allows("12"))

	resp = serveWithLines(t, supplier, []string{"5"}, "/departures/1000?line=12", "application/json")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, supplier.filter.Allows("12"))
	assert.False(t, supplier.filter.Allows("5"))
}

func TestDeparturesPlainByQuery(t *testing.T) {
	resp := serve(t, &stubSupplier{board: sampleBoard()}, "/departures/1000?format=plain", "text/html")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "5 Sand <Nord> 14:41 +1 A4\n", resp.Body.String())
}

func TestDeparturesDefaultsToTable(t *testing.T) {
	resp := serve(t, &stubSupplier{board: sampleBoard()}, "/departures/1000", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Bus stop : Hauptbahnhof")
}

func TestDeparturesErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "fetch", err: &client.FetchError{Kind: client.KindStatus, StatusCode: 500}, want: http.StatusBadGateway},
		{name: "timeout", err: &client.FetchError{Kind: client.KindTimeout}, want: http.StatusGatewayTimeout},
		{name: "layout", err: &departures.ExtractionError{Selector: "div#vdfimain"}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(t, &stubSupplier{err: tt.err}, "/departures/1000", "")
			assert.Equal(t, tt.want, resp.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	serve(t, &stubSupplier{board: sampleBoard()}, "/departures/1000", "")

	resp := serve(t, &stubSupplier{}, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "tuebus_request_duration_seconds")
}
