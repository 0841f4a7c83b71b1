package host

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

const (
	ActionRedirect    = "redirect"
	ResourceMainFrame = "main_frame"
)

var ErrRuleLimit = errors.New("maximum number of dynamic rules exceeded")

type Redirect struct {
	URL           string `json:"url,omitempty"`
	ExtensionPath string `json:"extensionPath,omitempty"`
}

type Action struct {
	Type     string    `json:"type"`
	Redirect *Redirect `json:"redirect,omitempty"`
}

type Condition struct {
	URLFilter     string   `json:"urlFilter"`
	ResourceTypes []string `json:"resourceTypes"`
}

type Rule struct {
	ID        int       `json:"id"`
	Priority  int       `json:"priority"`
	Action    Action    `json:"action"`
	Condition Condition `json:"condition"`
}

// RuleEngineInterface is the declarative blocking engine. UpdateDynamicRules
// applies removals and additions as one unit: on error nothing changes.
type RuleEngineInterface interface {
	GetDynamicRules(ctx context.Context) ([]Rule, error)
	UpdateDynamicRules(ctx context.Context, removeIDs []int, add []Rule) error
}

// MemoryRuleEngine keeps the installed rules in process. Installed ids are
// tracked in a roaring bitmap so listing and matching run in id order.
type MemoryRuleEngine struct {
	mu       sync.RWMutex
	ids      *roaring.Bitmap
	rules    map[uint32]Rule
	maxRules int
}

// NewMemoryRuleEngine caps the rule count at maxRules; zero or less means no cap.
func NewMemoryRuleEngine(maxRules int) *MemoryRuleEngine {
	return &MemoryRuleEngine{
		ids:      roaring.New(),
		rules:    make(map[uint32]Rule),
		maxRules: maxRules,
	}
}

func (e *MemoryRuleEngine) GetDynamicRules(_ context.Context) ([]Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Rule, 0, e.ids.GetCardinality())
	it := e.ids.Iterator()
	for it.HasNext() {
		out = append(out, e.rules[it.Next()])
	}
	return out, nil
}

func (e *MemoryRuleEngine) UpdateDynamicRules(ctx context.Context, removeIDs []int, add []Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.ids.Clone()
	for _, id := range removeIDs {
		if id > 0 {
			next.Remove(uint32(id))
		}
	}
	for _, rule := range add {
		if rule.ID <= 0 {
			return fmt.Errorf("rule id %d must be positive", rule.ID)
		}
		if !next.CheckedAdd(uint32(rule.ID)) {
			return fmt.Errorf("rule id %d is not unique", rule.ID)
		}
		if rule.Condition.URLFilter == "" {
			return fmt.Errorf("rule %d has an empty url filter", rule.ID)
		}
	}
	if e.maxRules > 0 && next.GetCardinality() > uint64(e.maxRules) {
		return fmt.Errorf("%w: %d > %d", ErrRuleLimit, next.GetCardinality(), e.maxRules)
	}

	for _, id := range removeIDs {
		delete(e.rules, uint32(id))
	}
	for _, rule := range add {
		e.rules[uint32(rule.ID)] = rule
	}
	e.ids = next
	return nil
}

// Count returns the number of installed rules.
func (e *MemoryRuleEngine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return int(e.ids.GetCardinality())
}

// Match returns the rule a main-frame navigation to rawURL would trigger.
// Among equal priorities the lowest id wins.
func (e *MemoryRuleEngine) Match(rawURL string) (Rule, bool) {
	host := hostOf(rawURL)
	if host == "" {
		return Rule{}, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var best Rule
	found := false
	it := e.ids.Iterator()
	for it.HasNext() {
		rule := e.rules[it.Next()]
		if !appliesToMainFrame(rule) || !filterMatches(rule.Condition.URLFilter, host) {
			continue
		}
		if !found || rule.Priority > best.Priority {
			best, found = rule, true
		}
	}
	return best, found
}

func appliesToMainFrame(rule Rule) bool {
	if len(rule.Condition.ResourceTypes) == 0 {
		return true
	}
	for _, rt := range rule.Condition.ResourceTypes {
		if rt == ResourceMainFrame {
			return true
		}
	}
	return false
}

// filterMatches handles the domain anchor form "||domain" used by the
// synchronizer, where domain may carry a "*." wildcard prefix.
func filterMatches(filter, host string) bool {
	domain, ok := strings.CutPrefix(filter, "||")
	if !ok {
		return strings.Contains(host, filter)
	}
	domain = strings.TrimPrefix(domain, "*.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func hostOf(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
