// Package flow turns raw dataset flows into ranked, scaled flow records.
//
// The pipeline is a sequence of independent pure stages:
//
//	Extract → Deduplicate → [AggregateToCentre] → NormalizeDirection
//	        → FilterByFocus → RankAndThreshold → ScaleRelative
//
// [Run] executes every stage in full on each call. No stage mutates its
// input; each returns a new slice.
package flow

import (
	"fmt"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/rank"
	"github.com/matzehuels/bubbleflow/pkg/source"
	"github.com/matzehuels/bubbleflow/pkg/view"
)

// Options selects what the pipeline extracts and keeps.
type Options struct {
	View       view.View
	Metric     string
	FlowType   model.FlowType
	Threshold  float64
	Focus      *model.EntityID
	CentreFlow bool
}

// Validate checks the options against the view. Unknown metrics and flow
// types are configuration errors; an out-of-range threshold or a centre
// request on a view without centre support is an input error.
func (o Options) Validate() error {
	if !o.View.SupportsMetric(o.Metric) {
		return errors.New(errors.ErrCodeUnknownMetric, "view %q does not support metric %q", o.View.Name, o.Metric)
	}
	if !o.View.SupportsFlowType(o.FlowType) {
		return errors.New(errors.ErrCodeUnknownFlowType, "view %q does not support flow type %q", o.View.Name, o.FlowType)
	}
	if o.Threshold < 0 || o.Threshold > 100 {
		return errors.New(errors.ErrCodeInvalidInput, "threshold %v outside [0, 100]", o.Threshold)
	}
	if o.CentreFlow && !o.View.SupportsCentreFlow {
		return errors.New(errors.ErrCodeInvalidInput, "view %q does not support centre flow", o.View.Name)
	}
	return nil
}

// Run executes the full pipeline.
//
// AggregateToCentre runs right after Deduplicate, ahead of NormalizeDirection
// and FilterByFocus, so a focused entity keeps its full centre totals.
func Run(ds *source.Dataset, opts Options) ([]model.FlowRecord, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Focus != nil && *opts.Focus != model.CentreID {
		if _, ok := ds.Entity(*opts.Focus); !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "focus entity %s not in dataset", *opts.Focus)
		}
	}

	records, err := Extract(ds, opts.View, opts.Metric)
	if err != nil {
		return nil, err
	}
	records = Deduplicate(records)
	if opts.CentreFlow {
		records = AggregateToCentre(records)
	}
	records = NormalizeDirection(records, opts.Focus)
	records = FilterByFocus(records, opts.Focus)
	records = RankAndThreshold(records, opts.FlowType, opts.Threshold)
	return ScaleRelative(records, opts.FlowType), nil
}

// Extract reads the view's flow list and values each flow by metric. Every
// flow must carry metric in both its in and out object; all flows that do
// not are reported together in one validation error.
func Extract(ds *source.Dataset, v view.View, metric string) ([]model.FlowRecord, error) {
	list, ok := ds.FlowList(v.DataSourceKey)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidData, "dataset has no flow list %q for view %q", v.DataSourceKey, v.Name)
	}
	val := errors.NewValidator("dataset")
	out := make([]model.FlowRecord, 0, len(list))
	for i, f := range list {
		in, okIn := f.In[metric]
		o, okOut := f.Out[metric]
		val.Check(okIn, fmt.Sprintf("flows.%s[%d].in.%s", v.DataSourceKey, i, metric), "missing metric %q", metric)
		val.Check(okOut, fmt.Sprintf("flows.%s[%d].out.%s", v.DataSourceKey, i, metric), "missing metric %q", metric)
		out = append(out, model.NewFlowRecord(f.From, f.To, in, o))
	}
	if err := val.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Deduplicate keeps the first record of each unordered pair.
func Deduplicate(records []model.FlowRecord) []model.FlowRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.FlowRecord, 0, len(records))
	for _, r := range records {
		key := model.PairKey(r.From, r.To)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// NormalizeDirection orients every record touching focus so focus is From.
// Records are returned unchanged when focus is nil.
func NormalizeDirection(records []model.FlowRecord, focus *model.EntityID) []model.FlowRecord {
	out := make([]model.FlowRecord, len(records))
	for i, r := range records {
		if focus != nil && r.To == *focus {
			r = r.Swapped()
		}
		out[i] = r
	}
	return out
}

// FilterByFocus keeps records touching focus. A nil focus keeps everything.
func FilterByFocus(records []model.FlowRecord, focus *model.EntityID) []model.FlowRecord {
	out := make([]model.FlowRecord, 0, len(records))
	for _, r := range records {
		if focus == nil || r.Touches(*focus) {
			out = append(out, r)
		}
	}
	return out
}

// AggregateToCentre sums each entity's flows into one record pointing at
// [model.CentreID]. On the From side in and out are taken as is; on the To
// side they are mirrored. Entities appear in first-seen order.
func AggregateToCentre(records []model.FlowRecord) []model.FlowRecord {
	type totals struct{ in, out float64 }
	var order []model.EntityID
	acc := make(map[model.EntityID]*totals)
	get := func(id model.EntityID) *totals {
		t, ok := acc[id]
		if !ok {
			t = &totals{}
			acc[id] = t
			order = append(order, id)
		}
		return t
	}

	for _, r := range records {
		from := get(r.From)
		from.in += r.AbsoluteInFlow
		from.out += r.AbsoluteOutFlow

		to := get(r.To)
		to.in += r.AbsoluteOutFlow
		to.out += r.AbsoluteInFlow
	}

	out := make([]model.FlowRecord, 0, len(order))
	for _, id := range order {
		t := acc[id]
		out = append(out, model.NewFlowRecord(id, model.CentreID, t.in, t.out))
	}
	return out
}

// RankAndThreshold sets each record's percentile rank over the active field
// of the given set and drops records ranked below threshold.
func RankAndThreshold(records []model.FlowRecord, ft model.FlowType, threshold float64) []model.FlowRecord {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Value(ft)
	}
	ranks := rank.PercentileRanks(values)

	out := make([]model.FlowRecord, 0, len(records))
	for i, r := range records {
		r.PercentileRank = ranks[i]
		if r.PercentileRank >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// ScaleRelative sets the relative sizes (0-100) used for thickness.
//
// RelativeValue scales the active field over the set. RelativeIn and
// RelativeOut share one joint scale across both fields, so the two halves of
// a bidirectional flow stay comparable.
func ScaleRelative(records []model.FlowRecord, ft model.FlowType) []model.FlowRecord {
	n := len(records)
	ins := make([]float64, n)
	outs := make([]float64, n)
	active := make([]float64, n)
	for i, r := range records {
		ins[i] = r.AbsoluteInFlow
		outs[i] = r.AbsoluteOutFlow
		active[i] = r.Value(ft)
	}
	joint := rank.RelativeSizes(ins, outs)
	single := rank.RelativeSizes(active)

	out := make([]model.FlowRecord, n)
	for i, r := range records {
		r.RelativeIn = joint[0][i]
		r.RelativeOut = joint[1][i]
		r.RelativeValue = single[0][i]
		out[i] = r
	}
	return out
}
