package slice

import (
	"fmt"

	"github.com/kevicsalazar/appactions-kotlin/internal/deeplink"
	"github.com/kevicsalazar/appactions-kotlin/internal/domain"
)

// AccentColor tints the rendered slice in the host surface.
const AccentColor = "#4CAF50"

// State reports whether a slice carries data yet.
type State string

const (
	StateLoading State = "loading"
	StateContent State = "content"
)

// Header tops every slice and carries the primary navigation action.
type Header struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	PrimaryAction string `json:"primary_action"`
}

// AggregateRow shows the totals across the fetched records.
type AggregateRow struct {
	Activities string `json:"activities"`
	Duration   string `json:"duration"`
	Distance   string `json:"distance"`
}

// RecordRow summarizes a single activity record.
type RecordRow struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Slice is the declarative UI description consumed by the hosting renderer.
type Slice struct {
	URI         string        `json:"uri"`
	State       State         `json:"state"`
	AccentColor string        `json:"accent_color"`
	Header      Header        `json:"header"`
	Aggregate   *AggregateRow `json:"aggregate,omitempty"`
	Rows        []RecordRow   `json:"rows,omitempty"`
}

// BuildLoading renders the placeholder shown while the fetch is pending.
func BuildLoading(uri string, filter domain.ActivityType) Slice {
	return Slice{
		URI:         uri,
		State:       StateLoading,
		AccentColor: AccentColor,
		Header: Header{
			Title:         filter.DisplayName(),
			Subtitle:      "Loading your activities",
			PrimaryAction: deeplink.ViewAll(filter),
		},
	}
}

// BuildContent renders the vertical-list summary once records are available:
// header, one aggregate row, then one row per record.
func BuildContent(uri string, filter domain.ActivityType, records []domain.ActivityRecord) Slice {
	built := Slice{
		URI:         uri,
		State:       StateContent,
		AccentColor: AccentColor,
		Header: Header{
			Title:         filter.DisplayName(),
			Subtitle:      "No tracked activities",
			PrimaryAction: deeplink.ViewAll(filter),
		},
	}

	if len(records) == 0 {
		return built
	}

	built.Header.Subtitle = fmt.Sprintf("Your last %d activities", len(records))

	summary := domain.Summarize(records)
	built.Aggregate = &AggregateRow{
		Activities: fmt.Sprintf("%d Activities", summary.Count),
		Duration:   fmt.Sprintf("%.2f Minutes", summary.TotalDurationMinutes),
		Distance:   fmt.Sprintf("%.2f Km", summary.TotalDistanceKm),
	}

	built.Rows = make([]RecordRow, 0, len(records))
	for _, record := range records {
		built.Rows = append(built.Rows, RecordRow{
			Title:    fmt.Sprintf("%.2f Km", record.DistanceMeters/1000.0),
			Subtitle: record.StartedAt.Local().Weekday().String(),
		})
	}
	return built
}
