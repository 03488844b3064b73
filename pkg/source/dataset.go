package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/matzehuels/bubbleflow/pkg/cache"
	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/view"
)

// Flow-type sub-object keys of a raw flow.
const (
	keyIn   = "in"
	keyOut  = "out"
	keyNet  = "net"
	keyBoth = "both"
)

// Entity is a validated raw entity.
type Entity struct {
	ID           model.EntityID `json:"id"`
	Label        string         `json:"label"`
	AbsoluteSize float64        `json:"absoluteSize"`
}

// Flow is a validated raw flow between two entities. Each map holds one value
// per metric key.
type Flow struct {
	From model.EntityID     `json:"from"`
	To   model.EntityID     `json:"to"`
	In   map[string]float64 `json:"in,omitempty"`
	Out  map[string]float64 `json:"out,omitempty"`
	Net  map[string]float64 `json:"net,omitempty"`
	Both map[string]float64 `json:"both,omitempty"`
}

// Dataset is an immutable, validated raw data snapshot.
type Dataset struct {
	Entities []Entity          `json:"entities"`
	Flows    map[string][]Flow `json:"flows"`

	// Digest is the SHA-256 of the raw document, used in cache keys.
	Digest string `json:"-"`

	index map[model.EntityID]int
}

// Entity returns the entity with the given id.
func (d *Dataset) Entity(id model.EntityID) (Entity, bool) {
	i, ok := d.index[id]
	if !ok {
		return Entity{}, false
	}
	return d.Entities[i], true
}

// FlowList returns the flow list stored under key.
func (d *Dataset) FlowList(key string) ([]Flow, bool) {
	fl, ok := d.Flows[key]
	return fl, ok
}

// Keys returns the flow list keys in sorted order.
func (d *Dataset) Keys() []string {
	keys := make([]string, 0, len(d.Flows))
	for k := range d.Flows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Metrics returns every metric key used by any flow, sorted.
func (d *Dataset) Metrics() []string {
	var out []string
	for _, list := range d.Flows {
		for _, f := range list {
			for _, m := range []map[string]float64{f.In, f.Out, f.Net, f.Both} {
				for k := range m {
					if !slices.Contains(out, k) {
						out = append(out, k)
					}
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// CheckViews verifies that every view's flow list exists in the dataset.
func (d *Dataset) CheckViews(views *view.Set) error {
	v := errors.NewValidator("dataset")
	for _, vw := range views.All() {
		_, ok := d.Flows[vw.DataSourceKey]
		v.Check(ok, "flows."+vw.DataSourceKey, "missing flow list for view %q", vw.Name)
	}
	return v.Err()
}

// Empty returns a dataset with no entities and no flows.
func Empty() *Dataset {
	return NewDataset(nil, nil)
}

// NewDataset builds a dataset from already validated values. Later entities
// with a duplicate id are ignored by lookups.
func NewDataset(entities []Entity, flows map[string][]Flow) *Dataset {
	if flows == nil {
		flows = map[string][]Flow{}
	}
	d := &Dataset{
		Entities: entities,
		Flows:    flows,
		index:    make(map[model.EntityID]int, len(entities)),
	}
	for i, e := range entities {
		if _, dup := d.index[e.ID]; !dup {
			d.index[e.ID] = i
		}
	}
	if data, err := json.Marshal(d); err == nil {
		d.Digest = cache.Hash(data)
	}
	return d
}

// Parse decodes and validates a raw JSON dataset.
//
// Validation runs over the whole document and reports every violation in a
// single [errors.ValidationError]: missing arrays, non-numeric or negative
// ids, duplicate ids, non-numeric or negative values, flows referencing
// unknown entities and self-flows.
func Parse(data []byte) (*Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidData, err, "decode dataset")
	}

	p := &parser{v: errors.NewValidator("dataset")}
	ds := &Dataset{
		Digest: cache.Hash(data),
		index:  make(map[model.EntityID]int),
	}
	ds.Entities = p.entities(doc["entities"], ds.index)
	ds.Flows = p.flows(doc["flows"], ds.index)

	if err := p.v.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}

type parser struct {
	v *errors.Validator
}

func (p *parser) entities(raw any, index map[model.EntityID]int) []Entity {
	list, ok := raw.([]any)
	if !p.v.Check(ok, "entities", "must be an array") {
		return nil
	}
	out := make([]Entity, 0, len(list))
	for i, item := range list {
		field := fmt.Sprintf("entities[%d]", i)
		obj, ok := item.(map[string]any)
		if !p.v.Check(ok, field, "must be an object") {
			continue
		}
		id, idOK := p.id(obj["id"], field+".id")
		size, sizeOK := p.value(obj["absoluteSize"], field+".absoluteSize")

		label := ""
		switch l := obj["label"].(type) {
		case nil:
			if idOK {
				label = id.String()
			}
		case string:
			label = l
		default:
			p.v.Addf(field+".label", "must be a string")
		}

		if !idOK || !sizeOK {
			continue
		}
		if _, dup := index[id]; dup {
			p.v.Addf(field+".id", "duplicate entity id %d", id)
			continue
		}
		index[id] = len(out)
		out = append(out, Entity{ID: id, Label: label, AbsoluteSize: size})
	}
	return out
}

func (p *parser) flows(raw any, index map[model.EntityID]int) map[string][]Flow {
	lists, ok := raw.(map[string]any)
	if !p.v.Check(ok, "flows", "must be an object of flow lists") {
		return map[string][]Flow{}
	}
	keys := make([]string, 0, len(lists))
	for k := range lists {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string][]Flow, len(lists))
	for _, key := range keys {
		list, ok := lists[key].([]any)
		if !p.v.Check(ok, "flows."+key, "must be an array") {
			continue
		}
		flows := make([]Flow, 0, len(list))
		for i, item := range list {
			if f, ok := p.flow(item, fmt.Sprintf("flows.%s[%d]", key, i), index); ok {
				flows = append(flows, f)
			}
		}
		out[key] = flows
	}
	return out
}

func (p *parser) flow(item any, field string, index map[model.EntityID]int) (Flow, bool) {
	obj, ok := item.(map[string]any)
	if !p.v.Check(ok, field, "must be an object") {
		return Flow{}, false
	}
	before := p.v.Len()

	from, fromOK := p.id(obj["from"], field+".from")
	to, toOK := p.id(obj["to"], field+".to")
	if fromOK {
		_, known := index[from]
		p.v.Check(known, field+".from", "unknown entity %d", from)
	}
	if toOK {
		_, known := index[to]
		p.v.Check(known, field+".to", "unknown entity %d", to)
	}
	if fromOK && toOK {
		p.v.Check(from != to, field, "self-flow on entity %d", from)
	}

	f := Flow{
		From: from,
		To:   to,
		In:   p.metrics(obj[keyIn], field+"."+keyIn),
		Out:  p.metrics(obj[keyOut], field+"."+keyOut),
		Net:  p.metrics(obj[keyNet], field+"."+keyNet),
		Both: p.metrics(obj[keyBoth], field+"."+keyBoth),
	}
	return f, p.v.Len() == before
}

func (p *parser) metrics(raw any, field string) map[string]float64 {
	if raw == nil {
		return nil
	}
	obj, ok := raw.(map[string]any)
	if !p.v.Check(ok, field, "must be an object of metric values") {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]float64, len(obj))
	for _, k := range keys {
		if n, ok := p.value(obj[k], field+"."+k); ok {
			out[k] = n
		}
	}
	return out
}

func (p *parser) id(raw any, field string) (model.EntityID, bool) {
	num, ok := raw.(json.Number)
	if !p.v.Check(ok, field, "must be a number") {
		return 0, false
	}
	n, err := num.Int64()
	if !p.v.Check(err == nil, field, "must be an integer, got %s", num) {
		return 0, false
	}
	if !p.v.Check(n >= 0, field, "must be non-negative, got %d", n) {
		return 0, false
	}
	return model.EntityID(n), true
}

func (p *parser) value(raw any, field string) (float64, bool) {
	num, ok := raw.(json.Number)
	if !p.v.Check(ok, field, "must be a number") {
		return 0, false
	}
	f, err := num.Float64()
	if !p.v.Check(err == nil && !math.IsInf(f, 0), field, "must be a finite number, got %s", num) {
		return 0, false
	}
	if !p.v.Check(f >= 0, field, "must be non-negative, got %v", f) {
		return 0, false
	}
	return f, true
}
