// Package classify scores the structural complexity of a slide from its
// shape and relationship inventory. The score is a weighted count of the
// categories whose data the structural extraction path cannot carry; slides
// at or above the threshold are flagged for an alternate representation.
package classify

// Weights are the per-category score contributions. The diagram weight is
// applied at most once per slide; every other category counts per instance.
type Weights struct {
	Diagram   int `json:"diagram" yaml:"diagram"`
	Chart     int `json:"chart" yaml:"chart"`
	Table     int `json:"table" yaml:"table"`
	Group     int `json:"group" yaml:"group"`
	Connector int `json:"connector" yaml:"connector"`
	OLE       int `json:"ole" yaml:"ole"`
}

// DefaultWeights reflect how much of each category's data lives outside the
// relationship-copy path. Tunable policy, not protocol.
var DefaultWeights = Weights{
	Diagram:   10,
	Chart:     5,
	Table:     3,
	Group:     2,
	Connector: 1,
	OLE:       1,
}

// DefaultThreshold is the default alternate-representation cutoff.
const DefaultThreshold = 15

// Classifier computes complexity scores. The zero value is unusable; use New.
type Classifier struct {
	weights   Weights
	threshold int
}

// New returns a Classifier with the default weights and the given threshold.
// A non-positive threshold falls back to DefaultThreshold.
func New(threshold int) Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Classifier{weights: DefaultWeights, threshold: threshold}
}

// NewWithWeights returns a Classifier with custom weights.
func NewWithWeights(weights Weights, threshold int) Classifier {
	c := New(threshold)
	c.weights = weights
	return c
}

// Threshold returns the configured alternate-representation cutoff.
func (c Classifier) Threshold() int { return c.threshold }

// Result is the classifier output for one slide.
type Result struct {
	Score             int  `json:"score"`
	RequiresAlternate bool `json:"requires_alternate"`
}

// Classify maps a slide inventory to its complexity score and
// alternate-representation flag. Pure: same inventory, same result,
// regardless of ingestion order.
func (c Classifier) Classify(inv Inventory) Result {
	score := 0
	if inv.HasDiagram {
		score += c.weights.Diagram
	}
	score += inv.Charts * c.weights.Chart
	score += inv.Tables * c.weights.Table
	score += inv.Groups * c.weights.Group
	score += inv.Connectors * c.weights.Connector
	score += inv.OLEObjects * c.weights.OLE

	return Result{
		Score:             score,
		RequiresAlternate: score >= c.threshold,
	}
}
