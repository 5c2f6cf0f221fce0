package prepare

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
)

// Manifest assigns provider ids to training, validation and test sets.
type Manifest struct {
	Seed  int64    `json:"seed"`
	Train []string `json:"train"`
	Val   []string `json:"val"`
	Test  []string `json:"test"`
}

// Split shuffles ids with seed and cuts them by the train and val fractions;
// the remainder is the test set. The same ids and seed always give the same
// manifest regardless of input order.
func Split(ids []string, train, val float64, seed int64) (Manifest, error) {
	if train < 0 || val < 0 || train+val > 1 {
		return Manifest{}, fmt.Errorf("invalid split fractions train=%g val=%g", train, val)
	}
	shuffled := slices.Clone(ids)
	slices.Sort(shuffled)
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nTrain := int(train * float64(len(shuffled)))
	nVal := int(val * float64(len(shuffled)))
	return Manifest{
		Seed:  seed,
		Train: nonNil(shuffled[:nTrain]),
		Val:   nonNil(shuffled[nTrain : nTrain+nVal]),
		Test:  nonNil(shuffled[nTrain+nVal:]),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// WriteManifest writes m as indented JSON.
func WriteManifest(path string, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(path, append(data, '\n'))
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
