package grid

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/zeu5/tickrl/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// VisitMap counts the ticks the agent spends on each tile
type VisitMap struct {
	mu        sync.Mutex
	Visits    map[int]map[int]int `json:"visits"`
	Width     int                 `json:"width"`
	Depth     int                 `json:"depth"`
	GoalHits  int                 `json:"goal_hits"`
	destroyed bool
}

var _ plotter.GridXYZ = &VisitMap{}
var _ types.Visualizer = &VisitMap{}

func NewVisitMap(width, depth int) *VisitMap {
	return &VisitMap{
		Visits: make(map[int]map[int]int),
		Width:  width,
		Depth:  depth,
	}
}

func (v *VisitMap) UpdatePosition(x, _, z int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	if _, ok := v.Visits[z]; !ok {
		v.Visits[z] = make(map[int]int)
	}
	v.Visits[z][x] += 1
	if x+1 > v.Width {
		v.Width = x + 1
	}
	if z+1 > v.Depth {
		v.Depth = z + 1
	}
}

func (v *VisitMap) OnGoalHit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.GoalHits += 1
}

func (v *VisitMap) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.destroyed = true
}

func (v *VisitMap) Count(x, z int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Visits[z][x]
}

func (v *VisitMap) Dims() (int, int) {
	return v.Width, v.Depth
}

func (v *VisitMap) Z(c, r int) float64 {
	return float64(v.Visits[r][c])
}

func (v *VisitMap) X(c int) float64 {
	return float64(c)
}

func (v *VisitMap) Y(r int) float64 {
	// north is up
	return float64(v.Depth - 1 - r)
}

func (v *VisitMap) Min() float64 {
	return 0.0
}

func (v *VisitMap) Max() float64 {
	max := 0
	for _, vals := range v.Visits {
		for _, count := range vals {
			if count > max {
				max = count
			}
		}
	}
	return float64(max)
}

// Save renders the heatmap to a png
func (v *VisitMap) Save(title, figPath string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Width == 0 || v.Depth == 0 {
		return errors.New("no visits recorded")
	}
	p := plot.New()
	p.Title.Text = title
	p.Add(plotter.NewHeatMap(v, palette.Heat(20, 1)))
	return p.Save(6*vg.Inch, 6*vg.Inch, figPath)
}

// Record dumps the raw counts as json
func (v *VisitMap) Record(filePath string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, bs, 0644)
}
