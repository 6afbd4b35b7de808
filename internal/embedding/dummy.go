package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"
)

const dummyTableName = "chunks"
const dummyDimension = 1536

// Dummy produces deterministic, hash-seeded vectors with no network
// dependency — used for local development and tests where a real
// provider isn't available.
type Dummy struct{}

// NewDummy constructs the dummy embedding provider.
func NewDummy() *Dummy { return &Dummy{} }

func (d *Dummy) Name() string      { return "dummy" }
func (d *Dummy) TableName() string { return dummyTableName }
func (d *Dummy) Dimension() int    { return dummyDimension }

// Embed returns the same vector for the same text every call, seeded
// from an FNV hash of the input so similar test fixtures reliably
// produce distinguishable vectors.
func (d *Dummy) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, dummyDimension)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	return vec, nil
}
