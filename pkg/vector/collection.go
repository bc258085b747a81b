package vector

import (
	"fmt"
	"strings"
)

// Distance is the similarity metric of a collection.
type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
	DistanceEuclid Distance = "euclid"
)

// ParseDistance parses a config string into a Distance.
func ParseDistance(s string) (Distance, error) {
	switch d := Distance(strings.ToLower(strings.TrimSpace(s))); d {
	case DistanceCosine, DistanceDot, DistanceEuclid:
		return d, nil
	case "euclidean", "l2":
		return DistanceEuclid, nil
	default:
		return "", fmt.Errorf("unsupported distance metric: %q (available: cosine, dot, euclid)", s)
	}
}

// CollectionSpec is the fixed schema of a collection. It never changes once
// the collection exists.
type CollectionSpec struct {
	Name       string
	Dimensions uint64
	Distance   Distance
}

// Validate checks that s describes a collection that can be created.
func (s CollectionSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	if s.Dimensions == 0 {
		return fmt.Errorf("collection %q: dimensions must be positive", s.Name)
	}
	switch s.Distance {
	case DistanceCosine, DistanceDot, DistanceEuclid:
	default:
		// Aliases such as "l2" are resolved by ParseDistance, never stored.
		return fmt.Errorf("collection %q: unsupported distance metric: %q (available: cosine, dot, euclid)", s.Name, s.Distance)
	}
	return nil
}

func (s CollectionSpec) String() string {
	return fmt.Sprintf("%s(%d, %s)", s.Name, s.Dimensions, s.Distance)
}

// NewCollectionSpec builds a validated spec from configuration values.
func NewCollectionSpec(name string, dimensions uint, distance string) (CollectionSpec, error) {
	d, err := ParseDistance(distance)
	if err != nil {
		return CollectionSpec{}, err
	}

	spec := CollectionSpec{
		Name:       name,
		Dimensions: uint64(dimensions),
		Distance:   d,
	}
	if err := spec.Validate(); err != nil {
		return CollectionSpec{}, err
	}
	return spec, nil
}
