package departures

import (
	"github.com/rycus86/tuebus/pkg/config"
	"strings"
)

type StopDirectory struct {
	stops []Stop
}

func NewStopDirectory(entries []config.Stop) *StopDirectory {
	dir := &StopDirectory{}
	for _, entry := range entries {
		dir.stops = append(dir.stops, Stop{
			ID:       strings.TrimSpace(entry.ID),
			Name:     strings.TrimSpace(entry.Name),
			Platform: orUnknown(strings.TrimSpace(entry.Platform)),
		})
	}
	return dir
}

// Resolve looks a stop up by id, then by name ignoring case. Anything else is
// taken to be a stop id the directory does not know about.
func (d *StopDirectory) Resolve(nameOrID string) Stop {
	target := strings.TrimSpace(nameOrID)

	for _, stop := range d.stops {
		if stop.ID == target {
			return stop
		}
	}

	for _, stop := range d.stops {
		if stop.Name != "" && strings.EqualFold(stop.Name, target) {
			return stop
		}
	}

	return Stop{
		ID:       target,
		Name:     target,
		Platform: Unknown,
	}
}
