package dashboard

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
)

// ErrNoChartData is returned when a chart is requested over an empty or
// all-zero aggregate.
var ErrNoChartData = errors.New("no data to chart")

// StatusPieChart renders the status breakdown as a PNG pie chart.
func StatusPieChart(ov Overview) ([]byte, error) {
	values := make([]chart.Value, 0, len(ov.Statuses))
	for _, b := range ov.Statuses {
		if b.Count == 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: statusLabel(b.Status),
			Value: float64(b.Count),
		})
	}
	if len(values) == 0 {
		return nil, ErrNoChartData
	}

	pie := chart.PieChart{
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering status chart: %w", err)
	}
	return buf.Bytes(), nil
}

// OriginPieChart renders the defect origin breakdown as a PNG pie chart.
func OriginPieChart(ov Overview) ([]byte, error) {
	values := make([]chart.Value, 0, len(ov.Origins))
	for _, b := range ov.Origins {
		if b.Count == 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: b.Origin,
			Value: float64(b.Count),
		})
	}
	if len(values) == 0 {
		return nil, ErrNoChartData
	}

	pie := chart.PieChart{
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering origin chart: %w", err)
	}
	return buf.Bytes(), nil
}

// TopTradeNameBarChart renders the most reported products as a PNG bar
// chart.
func TopTradeNameBarChart(ov Overview) ([]byte, error) {
	bars := make([]chart.Value, 0, len(ov.TopTradeNames))
	for _, nc := range ov.TopTradeNames {
		if nc.Count == 0 {
			continue
		}
		bars = append(bars, chart.Value{
			Label: nc.Name,
			Value: float64(nc.Count),
		})
	}
	if len(bars) == 0 {
		return nil, ErrNoChartData
	}

	bc := chart.BarChart{
		Width:    720,
		Height:   480,
		BarWidth: 60,
		Bars:     bars,
		XAxis: chart.Style{
			TextRotationDegrees: 15,
		},
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering trade name chart: %w", err)
	}
	return buf.Bytes(), nil
}

func statusLabel(status string) string {
	switch status {
	case "new":
		return "New"
	case "in_progress":
		return "In progress"
	case "cause_unknown":
		return "Cause unknown"
	case "completed":
		return "Completed"
	default:
		return status
	}
}
