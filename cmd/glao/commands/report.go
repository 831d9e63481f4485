package commands

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/teranos/GLAO/logger"
	"github.com/teranos/GLAO/pipeline"
)

// printSeries renders one study's series statistics.
func printSeries(title, unit string, res *pipeline.Result) {
	pterm.DefaultSection.Println(title)

	data := pterm.TableData{
		{"frames", fmt.Sprintf("%d", res.Series.Count)},
		{fmt.Sprintf("rms [%s]", unit), fmt.Sprintf("%.4g", res.Series.RMS)},
		{fmt.Sprintf("mean [%s]", unit), fmt.Sprintf("%.4g", res.Series.Mean)},
		{fmt.Sprintf("min [%s]", unit), fmt.Sprintf("%.4g", res.Series.Min)},
		{fmt.Sprintf("max [%s]", unit), fmt.Sprintf("%.4g", res.Series.Max)},
	}
	if res.Series.P50 != nil {
		data = append(data, []string{fmt.Sprintf("p50 [%s]", unit), fmt.Sprintf("%.4g", *res.Series.P50)})
	}
	if res.Series.P95 != nil {
		data = append(data, []string{fmt.Sprintf("p95 [%s]", unit), fmt.Sprintf("%.4g", *res.Series.P95)})
	}
	if len(res.Gaps) > 0 {
		data = append(data, []string{"skipped frames", fmt.Sprintf("%d", len(res.Gaps))})
	}

	if err := pterm.DefaultTable.WithData(data).Render(); err != nil {
		logger.Errorw("table render failed", "error", err)
	}
}
