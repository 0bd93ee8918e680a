package layout

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Naming selects how point-cloud files are named inside a density bucket. The writer and the
// dataset scanner both go through the same Naming, so they agree on which files belong to a
// bucket.
type Naming int

const (
	// NamingStem writes "<stem>.ply".
	NamingStem Naming = iota
	// NamingStemDensity writes "<stem>_<N>.ply".
	NamingStemDensity
)

// ParseNaming parses "stem" or "stem_density". The empty string is NamingStem.
func ParseNaming(s string) (Naming, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stem":
		return NamingStem, nil
	case "stem_density", "stem-density":
		return NamingStemDensity, nil
	default:
		return NamingStem, errors.Errorf("unknown naming policy %q, expected \"stem\" or \"stem_density\"", s)
	}
}

func (n Naming) String() string {
	switch n {
	case NamingStem:
		return "stem"
	case NamingStemDensity:
		return "stem_density"
	default:
		return "Naming(" + strconv.Itoa(int(n)) + ")"
	}
}

// Valid reports whether n is a known policy.
func (n Naming) Valid() bool {
	return n == NamingStem || n == NamingStemDensity
}

// FileName returns the point-cloud file name for stem sampled at density.
func (n Naming) FileName(stem string, density int) string {
	if n == NamingStemDensity {
		return stem + "_" + strconv.Itoa(density) + CloudExt
	}
	return stem + CloudExt
}

// ParseFileName recovers the stem from a file name inside the bucket for density. It returns
// false for anything this policy would not have written.
func (n Naming) ParseFileName(name string, density int) (string, bool) {
	if IsHidden(name) || !strings.HasSuffix(name, CloudExt) {
		return "", false
	}
	stem := strings.TrimSuffix(name, CloudExt)
	if n == NamingStemDensity {
		suffix := "_" + strconv.Itoa(density)
		if !strings.HasSuffix(stem, suffix) {
			return "", false
		}
		stem = strings.TrimSuffix(stem, suffix)
	}
	if stem == "" {
		return "", false
	}
	return stem, true
}

// MarshalJSON encodes the policy by name.
func (n Naming) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON decodes a policy name.
func (n *Naming) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNaming(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
