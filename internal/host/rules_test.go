package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redirectRule(id int, pattern string) Rule {
	return Rule{
		ID:       id,
		Priority: 1,
		Action: Action{
			Type:     ActionRedirect,
			Redirect: &Redirect{URL: "https://notion.so"},
		},
		Condition: Condition{
			URLFilter:     "||" + pattern,
			ResourceTypes: []string{ResourceMainFrame},
		},
	}
}

func TestMemoryRuleEngine_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryRuleEngine(0)

	require.NoError(t, e.UpdateDynamicRules(ctx, nil, []Rule{redirectRule(2, "reddit.com"), redirectRule(1, "x.com")}))
	rules, err := e.GetDynamicRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, 1, rules[0].ID)
	assert.Equal(t, 2, rules[1].ID)

	require.NoError(t, e.UpdateDynamicRules(ctx, []int{1, 2}, []Rule{redirectRule(1, "youtube.com")}))
	rules, _ = e.GetDynamicRules(ctx)
	require.Len(t, rules, 1)
	assert.Equal(t, "||youtube.com", rules[0].Condition.URLFilter)
}

func TestMemoryRuleEngine_RejectsWithoutPartialApply(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryRuleEngine(2)
	require.NoError(t, e.UpdateDynamicRules(ctx, nil, []Rule{redirectRule(1, "x.com")}))

	err := e.UpdateDynamicRules(ctx, []int{1}, []Rule{redirectRule(1, "a.com"), redirectRule(2, "b.com"), redirectRule(3, "c.com")})
	require.ErrorIs(t, err, ErrRuleLimit)

	err = e.UpdateDynamicRules(ctx, []int{1}, []Rule{redirectRule(5, "a.com"), redirectRule(5, "b.com")})
	require.Error(t, err)

	rules, _ := e.GetDynamicRules(ctx)
	require.Len(t, rules, 1)
	assert.Equal(t, "||x.com", rules[0].Condition.URLFilter)
}

func TestMemoryRuleEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewMemoryRuleEngine(0)
	assert.Error(t, e.UpdateDynamicRules(ctx, nil, []Rule{redirectRule(1, "x.com")}))
	assert.Equal(t, 0, e.Count())
}

func TestMemoryRuleEngine_Match(t *testing.T) {
	ctx := context.Background()
	e := NewMemoryRuleEngine(0)
	require.NoError(t, e.UpdateDynamicRules(ctx, nil, []Rule{
		redirectRule(1, "twitter.com"),
		redirectRule(2, "*.example.org"),
	}))

	tests := []struct {
		url   string
		id    int
		match bool
	}{
		{"https://twitter.com/home", 1, true},
		{"https://mobile.twitter.com", 1, true},
		{"https://nottwitter.com", 0, false},
		{"https://example.org/x", 2, true},
		{"https://a.b.example.org", 2, true},
		{"twitter.com", 1, true},
		{"https://notion.so", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rule, ok := e.Match(tt.url)
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Equal(t, tt.id, rule.ID)
			}
		})
	}
}

func TestMemoryRuleEngine_MatchIgnoresSubresourceRules(t *testing.T) {
	e := NewMemoryRuleEngine(0)
	r := redirectRule(1, "x.com")
	r.Condition.ResourceTypes = []string{"image"}
	require.NoError(t, e.UpdateDynamicRules(context.Background(), nil, []Rule{r}))

	_, ok := e.Match("https://x.com")
	assert.False(t, ok)
}
