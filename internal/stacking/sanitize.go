package stacking

import (
	"fmt"
	"regexp"
)

var nonColumnChar = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeConfigName turns a config's human-readable name into a stable
// meta-matrix column token: non [A-Za-z0-9_] characters become underscores.
// Collisions (two configs sanitizing to the same token) are resolved by a
// nameDeduper appending "_2", "_3", ... in encounter order, so a retrained
// ensemble's column names stay stable across runs as long as its base
// configs' names don't change.
func SanitizeConfigName(name string) string {
	sanitized := nonColumnChar.ReplaceAllString(name, "_")
	if sanitized == "" {
		sanitized = "model"
	}
	return sanitized
}

// nameDeduper tracks column tokens already handed out within one ensemble
// training run.
type nameDeduper struct {
	used map[string]bool
}

func newNameDeduper() *nameDeduper {
	return &nameDeduper{used: map[string]bool{}}
}

func (d *nameDeduper) next(base string) string {
	name := base
	for n := 2; d.used[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	d.used[name] = true
	return name
}
