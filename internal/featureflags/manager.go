// Package featureflags evaluates the runtime toggles listed in FEATURE_FLAGS,
// e.g. "feed_push=on,ranked_search=25%".
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

const (
	// FeedPush wakes running notification feeds from Redis publishes instead
	// of waiting for the next poll.
	FeedPush = "feed_push"
	// RankedSearch orders search results by trending score.
	RankedSearch = "ranked_search"
)

// Known lists the flags the gallery reads. They are always reported, off
// unless configured.
var Known = []string{FeedPush, RankedSearch}

// rule is a parsed flag value: the share of subjects it is enabled for.
type rule struct {
	value   string
	percent int
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{value: value, percent: 100}, true
	case "off", "false", "0":
		return rule{value: value}, true
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if !strings.HasSuffix(value, "%") || err != nil {
		return rule{}, false
	}
	return rule{value: value, percent: min(max(pct, 0), 100)}, true
}

type Manager struct {
	rules map[string]rule
}

// NewManager parses a comma separated key=value list. Malformed pairs are
// skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			rules[key] = r
		}
	}
	return &Manager{rules: rules}
}

// Enabled evaluates name for a subject, usually a user id or a device id.
// Partial rollouts bucket subjects deterministically and are off for an
// empty subject.
func (m *Manager) Enabled(name, subject string) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	switch {
	case !ok || r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case subject == "":
		return false
	}
	return bucket(name, subject) < r.percent
}

// On reports whether a flag is on for everyone.
func (m *Manager) On(name string) bool {
	return m.Enabled(name, "")
}

// Raw returns the configured values, normalized.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for k, r := range m.rules {
		out[k] = r.value
	}
	return out
}

// Snapshot evaluates every configured and known flag for subject.
func (m *Manager) Snapshot(subject string) map[string]bool {
	out := make(map[string]bool, len(Known))
	for _, name := range m.Names() {
		out[name] = m.Enabled(name, subject)
	}
	return out
}

// Names returns the known flags plus any extra configured ones, sorted.
func (m *Manager) Names() []string {
	seen := make(map[string]bool, len(Known))
	names := make([]string, 0, len(Known))
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, n := range Known {
		add(n)
	}
	if m != nil {
		for n := range m.rules {
			add(n)
		}
	}
	sort.Strings(names)
	return names
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + subject))
	return int(h.Sum32() % 100)
}
