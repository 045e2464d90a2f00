package shortener

import (
	"fmt"
)

// NewGenerator creates the generator named by config.Generator. The sequence
// generator restarts at one on every process start, so it cannot be selected here.
func NewGenerator(config Config) (Generator, error) {
	switch config.Generator {
	case "", TypeRandom:
		return NewRandomGenerator(), nil
	case TypeSequence:
		return nil, fmt.Errorf("generator type %s is not persistent and only usable in tests", TypeSequence)
	default:
		return nil, fmt.Errorf("unknown generator type: %s", config.Generator)
	}
}
