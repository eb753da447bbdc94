package progress

import (
	"errors"
	"image/color"
	"sync"

	"github.com/zeu5/tickrl/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	MaxPoints  = 120
	DrawPoints = 40
)

var (
	ErrNotEnoughPoints = errors.New("not enough points to draw")
)

// Graph keeps the last MaxPoints samples of the moving average reward
// and of the exploration rate
type Graph struct {
	mu        sync.Mutex
	maxPoints int
	rewards   []float64
	epsilons  []float64
}

var _ types.ProgressRecorder = &Graph{}

func NewGraph() *Graph {
	return NewGraphWithCapacity(MaxPoints)
}

func NewGraphWithCapacity(maxPoints int) *Graph {
	if maxPoints < 1 {
		maxPoints = MaxPoints
	}
	return &Graph{
		maxPoints: maxPoints,
		rewards:   make([]float64, 0, maxPoints),
		epsilons:  make([]float64, 0, maxPoints),
	}
}

func (g *Graph) push(points []float64, v float64) []float64 {
	if len(points) >= g.maxPoints {
		points = append(points[:0], points[1:]...)
	}
	return append(points, v)
}

func (g *Graph) AddAvgRewardPoint(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rewards = g.push(g.rewards, v)
}

func (g *Graph) AddEpsilonPoint(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.epsilons = g.push(g.epsilons, v)
}

// Rewards returns a copy of the reward points, oldest first
func (g *Graph) Rewards() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]float64, len(g.rewards))
	copy(out, g.rewards)
	return out
}

func (g *Graph) Epsilons() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]float64, len(g.epsilons))
	copy(out, g.epsilons)
	return out
}

// Downsample keeps every k-th point so that about n points remain
func Downsample(points []float64, n int) plotter.XYs {
	step := 1
	if n > 0 && len(points)/n > 1 {
		step = len(points) / n
	}
	out := make(plotter.XYs, 0, len(points)/step+1)
	for i := 0; i < len(points); i += step {
		out = append(out, plotter.XY{X: float64(i), Y: points[i]})
	}
	return out
}

// Save draws both curves to a png, it needs at least two reward points
func (g *Graph) Save(figPath string) error {
	rewards := g.Rewards()
	epsilons := g.Epsilons()
	if len(rewards) < 2 {
		return ErrNotEnoughPoints
	}

	p := plot.New()
	p.Title.Text = "Training progress"
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Value"
	p.Add(plotter.NewGrid())

	rewardLine, err := plotter.NewLine(Downsample(rewards, DrawPoints))
	if err != nil {
		return err
	}
	rewardLine.Color = color.RGBA{R: 50, G: 205, B: 50, A: 255}
	p.Add(rewardLine)
	p.Legend.Add("avg reward", rewardLine)

	if len(epsilons) >= 2 {
		epsilonLine, err := plotter.NewLine(Downsample(epsilons, DrawPoints))
		if err != nil {
			return err
		}
		epsilonLine.Color = color.RGBA{R: 220, G: 50, B: 50, A: 255}
		epsilonLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(epsilonLine)
		p.Legend.Add("epsilon", epsilonLine)
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, figPath)
}
