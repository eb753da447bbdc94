package progress

import (
	"errors"
	"os"
	"path"
	"strings"
	"testing"
)

func TestGraphKeepsLastPoints(t *testing.T) {
	g := NewGraph()
	for i := 0; i < MaxPoints+30; i++ {
		g.AddAvgRewardPoint(float64(i))
	}
	rewards := g.Rewards()
	if len(rewards) != MaxPoints {
		t.Fatalf("expected %d points, got %d", MaxPoints, len(rewards))
	}
	if rewards[0] != 30 || rewards[MaxPoints-1] != float64(MaxPoints+29) {
		t.Errorf("unexpected window [%v .. %v]", rewards[0], rewards[MaxPoints-1])
	}
	if len(g.Epsilons()) != 0 {
		t.Errorf("epsilon points should be independent")
	}
}

func TestDownsample(t *testing.T) {
	points := make([]float64, 120)
	for i := range points {
		points[i] = float64(i)
	}
	xys := Downsample(points, 40)
	if len(xys) != 40 {
		t.Errorf("expected 40 points, got %d", len(xys))
	}
	if xys[1].Y != 3 {
		t.Errorf("expected every third point, got %v", xys[1])
	}
	if len(Downsample(points[:10], 40)) != 10 {
		t.Errorf("short series should be kept whole")
	}
}

func TestSave(t *testing.T) {
	g := NewGraphWithCapacity(10)
	figPath := path.Join(t.TempDir(), "progress.png")
	g.AddAvgRewardPoint(1)
	if err := g.Save(figPath); !errors.Is(err, ErrNotEnoughPoints) {
		t.Fatalf("expected ErrNotEnoughPoints, got %v", err)
	}
	g.AddAvgRewardPoint(2)
	g.AddEpsilonPoint(0.5)
	g.AddEpsilonPoint(0.4)
	if err := g.Save(figPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(figPath); err != nil {
		t.Error(err)
	}
}

func TestSaveHTML(t *testing.T) {
	g := NewGraph()
	pagePath := path.Join(t.TempDir(), "progress.html")
	for i := 0; i < 5; i++ {
		g.AddAvgRewardPoint(float64(i) - 2)
		g.AddEpsilonPoint(0.6 - float64(i)*0.1)
	}
	if err := g.SaveHTML(pagePath); err != nil {
		t.Fatal(err)
	}
	bs, err := os.ReadFile(pagePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(bs), "avg reward") {
		t.Errorf("expected the reward series in the page")
	}
}
