package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid flat top-level keys in the config file.
// These correspond to fields in the embedded sub-config structs.
var knownKeys = map[string]bool{
	// Server settings
	"server_url": true, "user_agent": true,
	// Sync settings
	"sync_debounce": true, "spool_path": true, "catalog_ttl": true,
	"shutdown_timeout": true,
	// Logging settings
	"log_level": true, "log_format": true,
	// Network settings
	"connect_timeout": true, "request_timeout": true,
	// Paths
	"state_dir": true,
}

// knownKeysList is the sorted slice form of knownKeys for Levenshtein
// matching. Sorted for deterministic suggestions when two candidates have
// the same edit distance.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	for _, key := range undecoded {
		if err := buildKeyError(key.String()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// buildKeyError creates a descriptive error for an unknown top-level key,
// optionally suggesting the closest known key.
func buildKeyError(keyStr string) error {
	fieldName := strings.SplitN(keyStr, ".", 2)[0]

	suggestion := closestMatch(fieldName, knownKeysList)
	if suggestion != "" {
		return fmt.Errorf("unknown config key %q (did you mean %q?)", fieldName, suggestion)
	}

	return fmt.Errorf("unknown config key %q", fieldName)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
