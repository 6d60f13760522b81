package output

import (
	"encoding/json"
	"fmt"
	"github.com/rodaine/table"
	"github.com/rycus86/tuebus/pkg/config"
	"github.com/rycus86/tuebus/pkg/departures"
	"io"
	"strings"
)

// Error wraps a failed write to the output stream.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to write output: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// errWriter remembers the first write error so that printers which do not report
// errors (like the table printer) can still be checked afterwards.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	if err != nil {
		ew.err = err
	}
	return n, err
}

func Render(w io.Writer, board *departures.Board, format config.Format) error {
	ew := &errWriter{w: w}

	switch format {
	case config.FormatJSON:
		renderJSON(ew, board.Departures)
	case config.FormatPlain:
		renderPlain(ew, board.Departures)
	case config.FormatTable:
		renderTable(ew, board)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}

	if ew.err != nil {
		return &Error{Err: ew.err}
	}
	return nil
}

func renderJSON(w io.Writer, found []departures.Departure) {
	if found == nil {
		found = []departures.Departure{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	encoder.Encode(found)
}

func renderPlain(w io.Writer, found []departures.Departure) {
	for _, d := range found {
		fmt.Fprintln(w, strings.Join([]string{
			d.Line,
			d.Destination,
			d.ScheduledTime.Text,
			d.DelayText(),
			d.Platform,
		}, " "))
	}
}

func renderTable(w io.Writer, board *departures.Board) {
	fmt.Fprintf(w, "Bus stop : %s\n", board.Stop.Name)
	fmt.Fprintf(w, "Platform : %s\n", board.Stop.Platform)
	fmt.Fprintf(w, "Stop id  : %s\n", board.Stop.ID)

	if len(board.Departures) == 0 {
		fmt.Fprintln(w, "No departures.")
		return
	}

	tbl := table.New("Line", "Destination", "Time", "Delay", "Platform").WithWriter(w)
	for _, d := range board.Departures {
		tbl.AddRow(d.Line, d.Destination, d.ScheduledTime.Text, d.DelayText(), d.Platform)
	}
	tbl.Print()
}
