package layout

import (
	"math"
	"testing"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
)

const eps = 1e-9

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func threeItems() []Item {
	return []Item{
		{ID: 1, Label: "A", Value: 10},
		{ID: 2, Label: "B", Value: 50},
		{ID: 3, Label: "C", Value: 100},
	}
}

func TestBuildEmpty(t *testing.T) {
	l := newTestEngine(t).Build(nil, 800, 600, true)
	if !l.Empty() {
		t.Errorf("Build(nil) should be empty, got %d entities", len(l.Entities))
	}
	if _, ok := l.Lookup(model.CentreID); ok {
		t.Error("empty layout should not contain a centre entity")
	}
}

func TestBuildPositions(t *testing.T) {
	l := newTestEngine(t).Build(threeItems(), 800, 600, false)

	wantR := 600.0/2 - DefaultMargin
	if math.Abs(l.PositionCircleRadius-wantR) > eps {
		t.Fatalf("PositionCircleRadius = %v, want %v", l.PositionCircleRadius, wantR)
	}

	wantAngles := []float64{0, 2 * math.Pi / 3, 4 * math.Pi / 3}
	for i, e := range l.Entities {
		if math.Abs(e.Angle-wantAngles[i]) > eps {
			t.Errorf("entity %d angle = %v, want %v", e.ID, e.Angle, wantAngles[i])
		}
		wantX := 400 + wantR*math.Cos(wantAngles[i])
		wantY := 300 + wantR*math.Sin(wantAngles[i])
		if math.Abs(e.Position.X-wantX) > eps || math.Abs(e.Position.Y-wantY) > eps {
			t.Errorf("entity %d position = %+v, want (%v, %v)", e.ID, e.Position, wantX, wantY)
		}
	}
}

func TestBuildRadiiFollowRank(t *testing.T) {
	l := newTestEngine(t).Build(threeItems(), 800, 600, false)
	a, _ := l.Lookup(1)
	b, _ := l.Lookup(2)
	c, _ := l.Lookup(3)

	if !(a.Radius < b.Radius && b.Radius < c.Radius) {
		t.Errorf("radii should grow with value: %v, %v, %v", a.Radius, b.Radius, c.Radius)
	}
	if math.Abs(a.Radius-l.MinBubbleRadius) > eps {
		t.Errorf("smallest radius = %v, want min %v", a.Radius, l.MinBubbleRadius)
	}
	if math.Abs(c.Radius-l.MaxBubbleRadius) > eps {
		t.Errorf("largest radius = %v, want max %v", c.Radius, l.MaxBubbleRadius)
	}
	if b.PercentileRank != 50 {
		t.Errorf("B rank = %v, want 50", b.PercentileRank)
	}
}

func TestBuildCentre(t *testing.T) {
	l := newTestEngine(t).Build(threeItems(), 800, 600, true)
	c, ok := l.Lookup(model.CentreID)
	if !ok {
		t.Fatal("centre entity missing")
	}
	if !c.IsCentre || c.Position != l.Center {
		t.Errorf("centre = %+v, want IsCentre at %+v", c, l.Center)
	}
	wantRadius := DefaultCentreRadiusFraction * l.PositionCircleRadius
	if math.Abs(c.Radius-wantRadius) > eps {
		t.Errorf("centre radius = %v, want %v", c.Radius, wantRadius)
	}
	centres := 0
	for _, e := range l.Entities {
		if e.IsCentre {
			centres++
		}
	}
	if centres != 1 {
		t.Errorf("found %d centre entities, want exactly 1", centres)
	}
	// The centre does not shift ring spacing.
	b, _ := l.Lookup(2)
	if math.Abs(b.Angle-2*math.Pi/3) > eps {
		t.Errorf("B angle with centre = %v, want 2π/3", b.Angle)
	}
	if got := l.RingRadius(model.CentreID); math.Abs(got-(c.Radius+DefaultMinBubbleToRingGap)) > eps {
		t.Errorf("centre ring radius = %v", got)
	}
	if got := l.RingRadius(2); got != l.OuterRingRadius {
		t.Errorf("ring radius = %v, want %v", got, l.OuterRingRadius)
	}
}

func TestOuterRingRadiusBounds(t *testing.T) {
	for n := 1; n <= 500; n++ {
		r := OuterRingRadius(260, n, 8, 60)
		if r > 60 {
			t.Fatalf("n=%d: ring radius %v exceeds max", n, r)
		}
		if r < 0 {
			t.Fatalf("n=%d: ring radius %v is negative", n, r)
		}
	}
	// Few entities: capped by the configured maximum.
	if got := OuterRingRadius(260, 3, 8, 60); got != 60 {
		t.Errorf("OuterRingRadius(n=3) = %v, want 60", got)
	}
	// Many entities: bounded by the circumference share.
	want := (2*math.Pi*260 - 99*8) / 200
	if got := OuterRingRadius(260, 100, 8, 60); math.Abs(got-want) > eps {
		t.Errorf("OuterRingRadius(n=100) = %v, want %v", got, want)
	}
}

func TestBuildNeverNegativeRadii(t *testing.T) {
	e := newTestEngine(t)
	for _, n := range []int{1, 2, 10, 200, 2000} {
		items := make([]Item, n)
		for i := range items {
			items[i] = Item{ID: model.EntityID(i), Value: float64(i % 7)}
		}
		l := e.Build(items, 120, 90, true)
		for _, ent := range l.Entities {
			if ent.Radius < 0 {
				t.Fatalf("n=%d: entity %v has negative radius %v", n, ent.ID, ent.Radius)
			}
		}
	}
}

func TestBuildTinyCanvas(t *testing.T) {
	l := newTestEngine(t).Build(threeItems(), 10, 10, false)
	if l.PositionCircleRadius != 0 {
		t.Errorf("PositionCircleRadius = %v, want 0 when margin exceeds canvas", l.PositionCircleRadius)
	}
	if l.MaxBubbleRadius != 0 {
		t.Errorf("MaxBubbleRadius = %v, want 0", l.MaxBubbleRadius)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.MinBubbleRadiusPercentage = 1.5
	cfg.MaxOuterRingRadius = 0
	err := cfg.Validate()
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("Validate() = %v, want INVALID_CONFIG", err)
	}
	if _, err := NewEngine(cfg); err == nil {
		t.Error("NewEngine should reject an invalid config")
	}
}
