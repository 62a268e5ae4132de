package registry

import (
	"fmt"

	"github.com/teris-io/shortid"
)

// IDGenerator produces participant identifiers.
type IDGenerator interface {
	Generate() (string, error)
}

type shortIDGenerator struct {
	sid *shortid.Shortid
}

// NewShortIDGenerator returns a generator backed by shortid. Ids are unique
// for the lifetime of the process.
func NewShortIDGenerator(seed uint64) (IDGenerator, error) {
	sid, err := shortid.New(1, shortid.DefaultABC, seed)
	if err != nil {
		return nil, fmt.Errorf("shortid: %w", err)
	}

	return &shortIDGenerator{sid: sid}, nil
}

func (g *shortIDGenerator) Generate() (string, error) {
	return g.sid.Generate()
}
