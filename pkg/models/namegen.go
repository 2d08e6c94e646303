package models

import (
	"fmt"
	"math/rand/v2"
)

// Word tables for generated workflow names. New workflows get a readable
// three-part slug instead of an empty or numbered name, matching the
// adjective-adjective-noun style users rename later.
var (
	nameAdjectives = []string{
		"amber", "bold", "brisk", "calm", "clever", "crimson", "eager",
		"fuzzy", "gentle", "golden", "hidden", "lively", "lunar", "mellow",
		"misty", "nimble", "quiet", "rapid", "silent", "solar", "swift",
		"tidy", "vivid", "wandering", "witty",
	}

	nameNouns = []string{
		"anchor", "beacon", "canyon", "cascade", "comet", "falcon", "garden",
		"glacier", "harbor", "lantern", "meadow", "orchard", "otter", "pond",
		"prairie", "raven", "river", "sparrow", "summit", "thicket",
	}
)

// GenerateName returns a random adjective-adjective-noun workflow name.
func GenerateName() string {
	first := nameAdjectives[rand.IntN(len(nameAdjectives))]
	second := nameAdjectives[rand.IntN(len(nameAdjectives))]
	noun := nameNouns[rand.IntN(len(nameNouns))]

	return fmt.Sprintf("%s-%s-%s", first, second, noun)
}
