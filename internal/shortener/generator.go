package shortener

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
)

// maxUnbiased is the largest multiple of len(Alphabet) that fits in a byte.
const maxUnbiased = 256 - 256%len(Alphabet)

// RandomGenerator draws codes uniformly from Alphabet using crypto/rand
type RandomGenerator struct {
	source io.Reader
}

// NewRandomGenerator creates a generator reading from crypto/rand
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{source: rand.Reader}
}

// Generate returns a random code of the given length
func (g *RandomGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got: %d", length)
	}

	code := make([]byte, 0, length)
	buf := make([]byte, length+length/2)
	for len(code) < length {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			// rejection sampling keeps every symbol equally likely
			if int(b) >= maxUnbiased {
				continue
			}
			code = append(code, Alphabet[int(b)%len(Alphabet)])
			if len(code) == length {
				break
			}
		}
	}

	return string(code), nil
}

// Type returns the generator type
func (g *RandomGenerator) Type() string {
	return TypeRandom
}

// SequenceGenerator produces predictable codes such as "test01" for tests.
// Its counter lives in memory only.
type SequenceGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

// NewSequenceGenerator creates a sequence generator with the given prefix
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next code in the sequence, padded or trimmed to length
func (g *SequenceGenerator) Generate(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++
	digits := length - len(g.prefix)
	if digits < 1 {
		return "", fmt.Errorf("code length %d too short for prefix %q", length, g.prefix)
	}
	return fmt.Sprintf("%s%0*d", g.prefix, digits, g.counter), nil
}

// Type returns the generator type
func (g *SequenceGenerator) Type() string {
	return TypeSequence
}

var (
	_ Generator = (*RandomGenerator)(nil)
	_ Generator = (*SequenceGenerator)(nil)
)
