package orchestrator

import "strings"

// RegionClass buckets a company location for the live statistics.
type RegionClass int

const (
	RegionNationwide RegionClass = iota
	RegionA
	RegionB
)

// Classifier assigns companies to one of two local sub-regions by keyword.
// Matching is case-insensitive and first-match-wins, with region A checked
// before region B; locations matching neither count as nationwide.
type Classifier struct {
	regionA []string
	regionB []string
}

// Salt Lake metro and Utah County keyword sets for the default region.
var (
	defaultRegionA = []string{
		"salt lake", "slc", "murray", "sandy", "draper", "south jordan",
		"west jordan", "millcreek", "cottonwood",
	}
	defaultRegionB = []string{
		"provo", "orem", "lehi", "american fork", "pleasant grove",
		"springville", "spanish fork", "utah county", "silicon slopes",
	}
)

// NewClassifier builds the classifier for the named region. Only "utah" has
// sub-region keyword sets today; any other region classifies everything as
// nationwide unless it mentions the region name itself, which counts as A.
func NewClassifier(region string) *Classifier {
	if strings.EqualFold(region, "utah") {
		return &Classifier{regionA: defaultRegionA, regionB: defaultRegionB}
	}
	return &Classifier{regionA: []string{strings.ToLower(region)}}
}

// Classify buckets a free-form location string.
func (c *Classifier) Classify(location string) RegionClass {
	loc := strings.ToLower(location)
	for _, kw := range c.regionA {
		if strings.Contains(loc, kw) {
			return RegionA
		}
	}
	for _, kw := range c.regionB {
		if strings.Contains(loc, kw) {
			return RegionB
		}
	}
	return RegionNationwide
}

// IsLocal reports whether the location falls in either sub-region.
func (c *Classifier) IsLocal(location string) bool {
	return c.Classify(location) != RegionNationwide
}
