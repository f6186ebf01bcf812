// Package featureflags parses FEATURE_FLAGS and answers whether a behaviour
// switch is on for a given user.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Known flags. Both default to off, which keeps the historical behaviour.
const (
	// BookmarkDedupe makes a repeat bookmark of the same post return the
	// existing bookmark instead of creating a duplicate.
	BookmarkDedupe = "bookmark_dedupe"
	// CommentPostCheck rejects comments on posts that do not exist.
	CommentPostCheck = "comment_post_check"
)

// Known lists every flag the application reads.
var Known = []string{BookmarkDedupe, CommentPostCheck}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "bookmark_dedupe=on,comment_post_check=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
// Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values: on/true/1, off/false/0, and N% for a deterministic
// per-user rollout. Anonymous callers (userID 0) only see flags that are fully on.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Unknown returns configured flag names the application never reads, sorted.
func (m *Manager) Unknown() []string {
	known := make(map[string]bool, len(Known))
	for _, k := range Known {
		known[k] = true
	}
	var out []string
	for name := range m.flags {
		if !known[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the evaluated state of every known flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(Known))
	for _, name := range Known {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
