package flow

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/source"
	"github.com/matzehuels/bubbleflow/pkg/view"
)

func metric(v float64) map[string]float64 { return map[string]float64{"abs": v} }

func fixture() *source.Dataset {
	return source.NewDataset(
		[]source.Entity{
			{ID: 1, Label: "A", AbsoluteSize: 10},
			{ID: 2, Label: "B", AbsoluteSize: 50},
			{ID: 3, Label: "C", AbsoluteSize: 100},
		},
		map[string][]source.Flow{
			"paired": {
				{From: 1, To: 2, In: metric(40), Out: metric(10)},
				{From: 2, To: 1, In: metric(5), Out: metric(5)},
				{From: 2, To: 3, In: metric(0), Out: metric(20)},
				{From: 3, To: 1, In: metric(6), Out: metric(0)},
			},
		},
	)
}

func pairsView() view.View {
	return view.DefaultViews()[0]
}

func opts(ft model.FlowType) Options {
	return Options{View: pairsView(), Metric: "abs", FlowType: ft}
}

func ptr(id model.EntityID) *model.EntityID { return &id }

func TestExtract(t *testing.T) {
	recs, err := Extract(fixture(), pairsView(), "abs")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("len = %d, want 4", len(recs))
	}
	if recs[0].AbsoluteInFlow != 40 || recs[0].AbsoluteOutFlow != 10 {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if recs[0].NetDirection != model.NetIn || recs[0].NetFlow != 30 {
		t.Errorf("recs[0] net = %v %v, want in 30", recs[0].NetDirection, recs[0].NetFlow)
	}

	other := pairsView()
	other.DataSourceKey = "absent"
	if _, err := Extract(fixture(), other, "abs"); !errors.Is(err, errors.ErrCodeInvalidData) {
		t.Errorf("Extract(absent list) error = %v, want INVALID_DATA", err)
	}
}

func TestExtractMissingMetric(t *testing.T) {
	ds := source.NewDataset(
		[]source.Entity{{ID: 1, AbsoluteSize: 1}, {ID: 2, AbsoluteSize: 1}, {ID: 3, AbsoluteSize: 1}},
		map[string][]source.Flow{
			"paired": {
				{From: 1, To: 2, In: metric(40), Out: map[string]float64{"vol": 10}},
				{From: 2, To: 3, In: metric(1), Out: metric(2)},
				{From: 3, To: 1},
			},
		},
	)
	_, err := Extract(ds, pairsView(), "abs")
	var ve *errors.ValidationError
	if !stderrors.As(err, &ve) {
		t.Fatalf("Extract() error = %v, want *ValidationError", err)
	}
	if !errors.Is(err, errors.ErrCodeInvalidData) {
		t.Error("missing metric should be INVALID_DATA")
	}
	want := []string{"flows.paired[0].out.abs", "flows.paired[2].in.abs", "flows.paired[2].out.abs"}
	if len(ve.Violations) != len(want) {
		t.Fatalf("violations = %v, want %v", ve.Violations, want)
	}
	for i, f := range want {
		if ve.Violations[i].Field != f {
			t.Errorf("violation %d = %s, want %s", i, ve.Violations[i].Field, f)
		}
	}

	if _, err := Extract(fixture(), pairsView(), "pct"); !errors.Is(err, errors.ErrCodeInvalidData) {
		t.Errorf("Extract(pct) error = %v, want INVALID_DATA", err)
	}
}

func TestDeduplicateFirstSeenWins(t *testing.T) {
	recs, _ := Extract(fixture(), pairsView(), "abs")
	got := Deduplicate(recs)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].From != 1 || got[0].AbsoluteInFlow != 40 {
		t.Errorf("first record = %+v, want the 1→2 original", got[0])
	}
	if len(recs) != 4 {
		t.Error("Deduplicate mutated its input")
	}
}

func TestNormalizeDirection(t *testing.T) {
	in := []model.FlowRecord{
		model.NewFlowRecord(3, 1, 6, 0),
		model.NewFlowRecord(1, 2, 40, 10),
	}
	got := NormalizeDirection(in, ptr(1))
	if got[0].From != 1 || got[0].To != 3 {
		t.Fatalf("swapped record = %+v", got[0])
	}
	if got[0].AbsoluteInFlow != 0 || got[0].AbsoluteOutFlow != 6 {
		t.Errorf("swapped in/out = %v/%v, want 0/6", got[0].AbsoluteInFlow, got[0].AbsoluteOutFlow)
	}
	if got[0].NetDirection != model.NetOut {
		t.Errorf("swapped net direction = %v, want out", got[0].NetDirection)
	}
	if got[1] != in[1] {
		t.Error("record already starting at focus should be unchanged")
	}
	if in[0].From != 3 {
		t.Error("NormalizeDirection mutated its input")
	}

	if same := NormalizeDirection(in, nil); same[0] != in[0] {
		t.Error("nil focus should leave records unchanged")
	}
}

func TestFilterByFocus(t *testing.T) {
	recs := Deduplicate(mustExtract(t))
	if got := FilterByFocus(recs, nil); len(got) != len(recs) {
		t.Errorf("nil focus kept %d of %d", len(got), len(recs))
	}
	got := FilterByFocus(recs, ptr(1))
	if len(got) != 2 {
		t.Fatalf("focus 1 kept %d, want 2", len(got))
	}
	for _, r := range got {
		if !r.Touches(1) {
			t.Errorf("record %s does not touch focus", r.ID)
		}
	}
}

func TestAggregateToCentre(t *testing.T) {
	got := AggregateToCentre(Deduplicate(mustExtract(t)))
	want := []struct {
		id      model.EntityID
		in, out float64
	}{
		{1, 40, 16},
		{2, 10, 60},
		{3, 26, 0},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	var sumIn, sumOut float64
	for i, w := range want {
		r := got[i]
		if r.From != w.id || r.To != model.CentreID {
			t.Errorf("record %d = %v→%v, want %v→centre", i, r.From, r.To, w.id)
		}
		if r.AbsoluteInFlow != w.in || r.AbsoluteOutFlow != w.out {
			t.Errorf("entity %v in/out = %v/%v, want %v/%v", w.id, r.AbsoluteInFlow, r.AbsoluteOutFlow, w.in, w.out)
		}
		sumIn += r.AbsoluteInFlow
		sumOut += r.AbsoluteOutFlow
	}
	if sumIn != sumOut {
		t.Errorf("aggregation is not conservative: in %v, out %v", sumIn, sumOut)
	}
}

func TestRankAndThreshold(t *testing.T) {
	recs := Deduplicate(mustExtract(t))
	tests := []struct {
		threshold float64
		wantIDs   []string
	}{
		{0, []string{"1,2", "2,3", "1,3"}},
		{50, []string{"1,2", "2,3"}},
		{60, []string{"1,2"}},
		{100, []string{"1,2"}},
	}
	for _, tt := range tests {
		got := RankAndThreshold(recs, model.FlowBoth, tt.threshold)
		if len(got) != len(tt.wantIDs) {
			t.Errorf("threshold %v: kept %d, want %d", tt.threshold, len(got), len(tt.wantIDs))
			continue
		}
		for i, id := range tt.wantIDs {
			if got[i].ID != id {
				t.Errorf("threshold %v: got[%d] = %s, want %s", tt.threshold, i, got[i].ID, id)
			}
		}
	}
}

func TestThresholdDependsOnSetMembership(t *testing.T) {
	full := []model.FlowRecord{
		model.NewFlowRecord(1, 2, 40, 10),
		model.NewFlowRecord(2, 3, 0, 20),
		model.NewFlowRecord(3, 1, 6, 0),
	}
	tests := []struct {
		name    string
		records []model.FlowRecord
		kept    bool
	}{
		{"full set", full, true},
		{"smallest dropped", full[:2], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var kept bool
			for _, r := range RankAndThreshold(tt.records, model.FlowBoth, 50) {
				if r.ID == "2,3" {
					kept = true
				}
			}
			if kept != tt.kept {
				t.Errorf("2,3 kept at threshold 50 = %v, want %v", kept, tt.kept)
			}
		})
	}
}

func TestRankIsOverActiveField(t *testing.T) {
	recs := Deduplicate(mustExtract(t))
	byIn := RankAndThreshold(recs, model.FlowIn, 0)
	byOut := RankAndThreshold(recs, model.FlowOut, 0)
	if byIn[0].PercentileRank != 100 {
		t.Errorf("1→2 ranked by in = %v, want 100", byIn[0].PercentileRank)
	}
	if byOut[1].PercentileRank != 100 {
		t.Errorf("2→3 ranked by out = %v, want 100", byOut[1].PercentileRank)
	}
}

func TestScaleRelativeSharesScale(t *testing.T) {
	recs := []model.FlowRecord{
		model.NewFlowRecord(1, 2, 40, 10),
		model.NewFlowRecord(1, 3, 0, 6),
	}
	got := ScaleRelative(recs, model.FlowBoth)
	check := func(name string, got, want float64) {
		t.Helper()
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	check("r0 in", got[0].RelativeIn, 100)
	check("r0 out", got[0].RelativeOut, 25)
	check("r1 in", got[1].RelativeIn, 0)
	check("r1 out", got[1].RelativeOut, 15)
	check("r0 value", got[0].RelativeValue, 100)
	check("r1 value", got[1].RelativeValue, 0)

	single := ScaleRelative(recs[:1], model.FlowNet)
	check("single value", single[0].RelativeValue, 100)
}

func TestRunFocus(t *testing.T) {
	o := opts(model.FlowBoth)
	o.Focus = ptr(1)
	got, err := Run(fixture(), o)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, r := range got {
		if r.From != 1 {
			t.Errorf("record %s not oriented from focus: %v→%v", r.ID, r.From, r.To)
		}
	}
}

func TestRunCentreAggregatesBeforeFocus(t *testing.T) {
	o := opts(model.FlowBoth)
	o.CentreFlow = true
	o.Focus = ptr(2)
	got, err := Run(fixture(), o)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].AbsoluteInFlow != 10 || got[0].AbsoluteOutFlow != 60 {
		t.Errorf("focused centre record = %+v, want full totals 10/60", got[0])
	}
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		code   errors.Code
	}{
		{"unknown metric", func(o *Options) { o.Metric = "volume" }, errors.ErrCodeUnknownMetric},
		{"unknown flow type", func(o *Options) { o.FlowType = "sideways" }, errors.ErrCodeUnknownFlowType},
		{"negative threshold", func(o *Options) { o.Threshold = -1 }, errors.ErrCodeInvalidInput},
		{"threshold above 100", func(o *Options) { o.Threshold = 101 }, errors.ErrCodeInvalidInput},
		{"centre unsupported", func(o *Options) { o.View.SupportsCentreFlow = false; o.CentreFlow = true }, errors.ErrCodeInvalidInput},
		{"unknown focus", func(o *Options) { o.Focus = ptr(42) }, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := opts(model.FlowBoth)
			tt.mutate(&o)
			if _, err := Run(fixture(), o); !errors.Is(err, tt.code) {
				t.Errorf("Run() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRunEmpty(t *testing.T) {
	ds := source.NewDataset(nil, map[string][]source.Flow{"paired": nil})
	got, err := Run(ds, opts(model.FlowNet))
	if err != nil {
		t.Fatalf("Run(empty): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func mustExtract(t *testing.T) []model.FlowRecord {
	t.Helper()
	recs, err := Extract(fixture(), pairsView(), "abs")
	if err != nil {
		t.Fatal(err)
	}
	return recs
}
