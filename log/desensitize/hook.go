package desensitize

import (
	"slices"
	"sync"
)

// Hook applies its rules in the order they were added.
type Hook struct {
	mu    sync.RWMutex
	rules []Rule
}

func NewHook(rules ...Rule) *Hook {
	h := &Hook{}
	h.Add(rules...)
	return h
}

// Add appends rules. A rule with a name already present replaces it in
// place.
func (h *Hook) Add(rules ...Rule) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		if i := h.index(rule.Name()); i >= 0 {
			h.rules[i] = rule
			continue
		}
		h.rules = append(h.rules, rule)
	}
}

// AddPattern adds a PatternRule.
func (h *Hook) AddPattern(name, pattern, replacement string) error {
	rule, err := NewPatternRule(name, pattern, replacement)
	if err != nil {
		return err
	}
	h.Add(rule)
	return nil
}

// AddFields adds a FieldRule masking the given JSON keys.
func (h *Hook) AddFields(name string, fields ...string) error {
	rule, err := NewFieldRule(name, fields...)
	if err != nil {
		return err
	}
	h.Add(rule)
	return nil
}

func (h *Hook) Remove(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.index(name)
	if i < 0 {
		return false
	}
	h.rules = slices.Delete(h.rules, i, i+1)
	return true
}

func (h *Hook) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rules)
}

// Desensitize runs every rule over s.
func (h *Hook) Desensitize(s string) string {
	if s == "" {
		return s
	}
	h.mu.RLock()
	rules := h.rules
	h.mu.RUnlock()

	for _, rule := range rules {
		s = rule.Process(s)
	}
	return s
}

func (h *Hook) index(name string) int {
	return slices.IndexFunc(h.rules, func(r Rule) bool { return r.Name() == name })
}
