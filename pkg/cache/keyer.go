package cache

// Keyer generates cache keys.
type Keyer interface {
	// DatasetKey is the key of a raw dataset fetched from ref.
	DatasetKey(ref string) string
	// RenderKey is the key of a render model computed from a dataset.
	RenderKey(datasetDigest string, opts RenderKeyOpts) string
}

// RenderKeyOpts lists every input besides the dataset that changes a render
// model.
type RenderKeyOpts struct {
	View         string  `json:"view"`
	Metric       string  `json:"metric"`
	FlowType     string  `json:"flow_type"`
	Threshold    float64 `json:"threshold"`
	FocusEntity  string  `json:"focus_entity,omitempty"`
	FocusFlow    string  `json:"focus_flow,omitempty"`
	CentreFlow   bool    `json:"centre_flow,omitempty"`
	Theme        string  `json:"theme"`
	Style        string  `json:"style"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	ConfigDigest string  `json:"config_digest"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DatasetKey returns "dataset:<hash(ref)>".
func (DefaultKeyer) DatasetKey(ref string) string {
	return hashKey("dataset", ref)
}

// RenderKey returns "render:<hash(digest, opts)>".
func (DefaultKeyer) RenderKey(datasetDigest string, opts RenderKeyOpts) string {
	return hashKey("render", datasetDigest, opts)
}
