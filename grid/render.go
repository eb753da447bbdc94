package grid

import (
	"strconv"
	"strings"

	"github.com/logrusorgru/aurora"
)

// Render draws the arena one row per z, north first. The agent is 'A', the
// goal 'G', walls '#', hazards '~' and floor tiles their height.
func (a *Arena) Render(colors bool) string {
	au := aurora.NewAurora(colors)
	t := a.terrain
	b := strings.Builder{}
	for z := 0; z < t.Depth; z++ {
		for x := 0; x < t.Width; x++ {
			p := Position{x, z}
			switch {
			case p.Eq(a.agent):
				b.WriteString(au.Green("A").Bold().String())
			case p.Eq(a.goal):
				b.WriteString(au.Yellow("G").Bold().String())
			case t.Tile(p) == Wall:
				b.WriteString(au.White("#").String())
			case t.Tile(p) == Hazard:
				b.WriteString(au.Red("~").String())
			default:
				b.WriteString(au.Blue(strconv.Itoa(t.Height(p))).String())
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
