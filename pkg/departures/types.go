package departures

import (
	"encoding/json"
	"strconv"
)

// Unknown marks a field that was missing from the departure row.
const Unknown = "unknown"

type Stop struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

// Departure is one row of the departure board, in page order.
type Departure struct {
	Line          string    `json:"line"`
	Destination   string    `json:"destination"`
	ScheduledTime TimeOfDay `json:"scheduled_time"`
	Delay         *int      `json:"delay"`
	Platform      string    `json:"platform"`
}

type Board struct {
	Stop       Stop
	Departures []Departure
}

// TimeOfDay holds a canonical HH:MM time when Parsed, the raw cell text otherwise.
type TimeOfDay struct {
	Text   string
	Parsed bool
}

func (t TimeOfDay) String() string {
	return t.Text
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Text)
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*t = parseClock(text)
	return nil
}

func (d Departure) DelayText() string {
	if d.Delay == nil {
		return Unknown
	}
	if *d.Delay > 0 {
		return "+" + strconv.Itoa(*d.Delay)
	}
	return strconv.Itoa(*d.Delay)
}
