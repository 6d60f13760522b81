package server

import (
	"context"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rycus86/tuebus/pkg/client"
	"github.com/rycus86/tuebus/pkg/config"
	"github.com/rycus86/tuebus/pkg/departures"
	"github.com/rycus86/tuebus/pkg/output"
	"go.uber.org/zap"
	"html/template"
	"net/http"
	"strings"
	"time"
)

var (
	requestDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "tuebus_request_duration_seconds",
		Help: "Time taken to serve departure board requests",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(requestDuration)
}

type BoardSupplier interface {
	Scrape(ctx context.Context, stopName string, filter departures.LineFilter) (*departures.Board, error)
}

var boardTemplate = template.Must(template.New("board").Parse(`<html>
<head>
	<title>Departures from {{.Stop.Name}}</title>
</head>
<body>
<h1>Departures from {{.Stop.Name}}</h1>
<p>Platform: {{.Stop.Platform}}, stop id: {{.Stop.ID}}</p>
<table>
<tr><th>Line</th><th>Destination</th><th>Time</th><th>Delay</th><th>Platform</th></tr>
{{range .Departures}}<tr><td>{{.Line}}</td><td>{{.Destination}}</td><td>{{.ScheduledTime}}</td><td>{{.DelayText}}</td><td>{{.Platform}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// NewRouter serves the departure boards. defaultLines filter requests that carry no
// line query of their own.
func NewRouter(supplier BoardSupplier, defaultLines []string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/departures/{stop}", Departures(supplier, defaultLines, logger))
	router.Handle("/metrics", promhttp.Handler())

	return router
}

func Departures(supplier BoardSupplier, defaultLines []string, logger *zap.Logger) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		reqStart := time.Now()
		status := http.StatusOK
		defer func() {
			requestDuration.With(prometheus.Labels{"status": http.StatusText(status)}).Observe(time.Since(reqStart).Seconds())
		}()

		stop := strings.TrimSpace(chi.URLParam(request, "stop"))
		if stop == "" {
			status = http.StatusBadRequest
			writer.WriteHeader(status)
			return
		}

		log := logger.With(zap.String("stop", stop), zap.String("request_id", middleware.GetReqID(request.Context())))

		lines := request.URL.Query()["line"]
		if len(lines) == 0 {
			lines = defaultLines
		}

		board, err := supplier.Scrape(request.Context(), stop, departures.NewLineFilter(lines))
		if err != nil {
			status = statusFor(err)
			log.Warn("scrape failed", zap.Error(err), zap.Int("status", status))
			http.Error(writer, err.Error(), status)
			return
		}

		format := negotiate(request)

		switch format {
		case "html":
			writer.Header().Set("Content-Type", "text/html; charset=utf-8")
			writer.WriteHeader(status)
			if err := boardTemplate.Execute(writer, board); err != nil {
				log.Warn("failed to write response", zap.Error(err))
			}
			return
		case config.FormatJSON:
			writer.Header().Set("Content-Type", "application/json")
			writer.Header().Set("Cache-Control", "public, max-age=30")
		default:
			writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}

		writer.WriteHeader(status)
		if err := output.Render(writer, board, format); err != nil {
			log.Warn("failed to write response", zap.Error(err))
		}
	}
}

// negotiate prefers an explicit ?format= over the Accept header.
func negotiate(request *http.Request) config.Format {
	if requested := request.URL.Query().Get("format"); requested != "" {
		if format, err := config.ParseFormat(requested); err == nil {
			return format
		}
	}

	accept := request.Header.Get("Accept")

	if strings.Contains(accept, "application/json") {
		return config.FormatJSON
	} else if strings.Contains(accept, "text/html") {
		return "html"
	}
	return config.FormatTable
}

func statusFor(err error) int {
	var fetchErr *client.FetchError
	if errors.As(err, &fetchErr) {
		if fetchErr.Kind == client.KindTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
