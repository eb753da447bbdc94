package progress

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func lineData(points []float64) []opts.LineData {
	items := make([]opts.LineData, len(points))
	for i, v := range points {
		items[i] = opts.LineData{Value: v}
	}
	return items
}

// SaveHTML renders every stored point as an interactive chart
func (g *Graph) SaveHTML(pagePath string) error {
	rewards := g.Rewards()
	epsilons := g.Epsilons()
	if len(rewards) < 2 {
		return ErrNotEnoughPoints
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Training progress",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)
	samples := make([]string, len(rewards))
	for i := range rewards {
		samples[i] = fmt.Sprintf("%d", i)
	}
	line = line.SetXAxis(samples)
	line.AddSeries("avg reward", lineData(rewards))
	if len(epsilons) > 0 {
		line.AddSeries("epsilon", lineData(epsilons))
	}

	page := components.NewPage()
	page.AddCharts(line)
	f, err := os.Create(pagePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
