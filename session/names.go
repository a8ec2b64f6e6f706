// ABOUTME: Generated strategy names for users who do not want to pick one.
// ABOUTME: Names are a word pair plus a short nanoid suffix, e.g. "steady-heron-4k2p".
package session

import (
	"math/rand/v2"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	adjectives = []string{"amber", "brisk", "calm", "deep", "eager", "faint", "glad", "keen", "lucid", "quiet", "rapid", "steady", "vivid", "wise"}
	nouns      = []string{"axon", "cortex", "dendrite", "falcon", "heron", "lynx", "neuron", "orca", "raven", "signal", "synapse", "wave"}
)

// GenerateName returns a fresh strategy name.
func GenerateName() (string, error) {
	suffix, err := nanoid.Generate(suffixAlphabet, 4)
	if err != nil {
		return "", err
	}
	return adjectives[rand.IntN(len(adjectives))] + "-" + nouns[rand.IntN(len(nouns))] + "-" + suffix, nil
}
