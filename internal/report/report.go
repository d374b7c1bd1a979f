// Package report renders a standalone HTML summary of one orchestrated
// batch run using go-echarts. Like the run log it is purely an
// observer over the BatchResult.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/stitchwork/internal/imagery"
)

// WriteHTML renders the batch report to w.
func WriteHTML(w io.Writer, result *imagery.BatchResult) error {
	page := components.NewPage()
	page.SetPageTitle("stitchwork batch report")
	page.AddCharts(groupSizeChart(result), methodChart(result))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render batch report: %w", err)
	}
	return nil
}

// groupSizeChart shows the member count of every group, labeled by the
// path that stitched it (or "failed").
func groupSizeChart(result *imagery.BatchResult) *charts.Bar {
	labels := make([]string, 0, len(result.Outcomes))
	sizes := make([]opts.BarData, 0, len(result.Outcomes))
	for i, outcome := range result.Outcomes {
		method := outcome.Method
		if method == "" {
			method = "failed"
		}
		labels = append(labels, fmt.Sprintf("group %d (%s)", i+1, method))
		sizes = append(sizes, opts.BarData{Value: len(outcome.Members)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Group sizes",
			Subtitle: fmt.Sprintf("run=%s groups=%d discarded=%d", result.RunID, len(result.Outcomes), len(result.Discarded)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("images", sizes)
	return bar
}

// methodChart counts groups per stitching path.
func methodChart(result *imagery.BatchResult) *charts.Bar {
	counts := map[string]int{}
	for _, outcome := range result.Outcomes {
		method := outcome.Method
		if method == "" {
			method = "failed"
		}
		counts[method]++
	}

	methods := []string{"primary", "vertical", "horizontal", "grid", "failed"}
	labels := make([]string, 0, len(methods))
	data := make([]opts.BarData, 0, len(methods))
	for _, m := range methods {
		labels = append(labels, m)
		data = append(data, opts.BarData{Value: counts[m]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Stitching path per group"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("groups", data)
	return bar
}
