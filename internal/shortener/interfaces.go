package shortener

import (
	"context"
	"errors"
)

// Alphabet is the 62-symbol set short codes are drawn from
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrExhausted is returned when no free code was found within the attempt budget
var ErrExhausted = errors.New("short code allocation attempts exhausted")

// Generator draws candidate short codes
type Generator interface {
	// Generate returns a candidate code of the given length
	Generate(length int) (string, error)

	// Type returns the type identifier of the generator
	Type() string
}

// Oracle reports whether a short code is already taken in durable storage
type Oracle interface {
	CodeExists(ctx context.Context, shortCode string) (bool, error)
}

// Config holds configuration for short code allocation
type Config struct {
	Generator   string `yaml:"generator"`
	Length      int    `yaml:"length"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// GeneratorType constants
const (
	TypeRandom   = "random"
	TypeSequence = "sequence"
)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Generator:   TypeRandom,
		Length:      6,
		MaxAttempts: 10,
	}
}
