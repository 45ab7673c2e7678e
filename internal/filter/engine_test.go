package filter

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_scanner/internal/config"
	"content_scanner/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func strictEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(DefaultRuleSets(), config.PolicyStrict, testLogger())
}

func TestClassify_ApprovesOnTopicText(t *testing.T) {
	e := strictEngine(t)

	analysis := e.Classify(domain.CandidateItem{Text: "Best Chicago hotdog recipe!!"})

	assert.True(t, analysis.IsValidTopic)
	assert.False(t, analysis.IsSpam)
	assert.False(t, analysis.IsInappropriate)
	assert.GreaterOrEqual(t, analysis.Confidence, 0.7)
}

func TestClassify_SpamTermsRejectDespiteTopicMatch(t *testing.T) {
	e := strictEngine(t)

	analysis := e.Classify(domain.CandidateItem{
		Text: "Buy now!!! Click here for discount hotdog merch",
	})

	assert.True(t, analysis.IsSpam)
	assert.False(t, analysis.IsValidTopic)
	assert.LessOrEqual(t, analysis.Confidence, 0.35)
	assert.Contains(t, analysis.FlaggedPatterns, "spam.buy_now")
	assert.Contains(t, analysis.FlaggedPatterns, "spam.click_here")
	assert.Contains(t, analysis.FlaggedPatterns, "spam.discount")
}

func TestClassify_InappropriateGatesTopic(t *testing.T) {
	e := strictEngine(t)

	analysis := e.Classify(domain.CandidateItem{Text: "nsfw hotdog picture"})

	assert.True(t, analysis.IsInappropriate)
	assert.False(t, analysis.IsValidTopic)
	assert.Contains(t, analysis.FlaggedPatterns, "inapp.nsfw")
}

func TestClassify_UnrelatedPenalizesButDoesNotGate(t *testing.T) {
	e := strictEngine(t)

	analysis := e.Classify(domain.CandidateItem{
		Text: "hotdog stand outside the senate election rally",
	})

	assert.True(t, analysis.IsUnrelated)
	assert.True(t, analysis.IsValidTopic)
	assert.InDelta(t, 0.3, analysis.Confidence, 0.01)
}

func TestClassify_NoRequiredTermStrictPolicy(t *testing.T) {
	e := strictEngine(t)

	analysis := e.Classify(domain.CandidateItem{Text: "look at this amazing photo"})

	assert.False(t, analysis.IsValidTopic)
}

func TestClassify_NoRequiredTermPermissivePolicy(t *testing.T) {
	e := NewEngine(DefaultRuleSets(), config.PolicyPermissive, testLogger())

	analysis := e.Classify(domain.CandidateItem{
		Text:     "look at this",
		MediaURL: "https://cdn.example.com/pic.jpg",
	})

	assert.True(t, analysis.IsValidTopic)
	assert.InDelta(t, 0.4, analysis.Confidence, 0.01) // 0.3 base + 0.1 media boost
}

func TestClassify_EngagementAndMediaBoosts(t *testing.T) {
	e := strictEngine(t)

	plain := e.Classify(domain.CandidateItem{Text: "hotdog review"})
	boosted := e.Classify(domain.CandidateItem{
		Text:            "hotdog review",
		MediaURL:        "https://cdn.example.com/clip.mp4",
		EngagementScore: 600,
	})

	assert.Greater(t, boosted.Confidence, plain.Confidence)
	assert.LessOrEqual(t, boosted.Confidence, 0.99)
}

func TestClassify_ConfidenceAlwaysBounded(t *testing.T) {
	strict := strictEngine(t)
	permissive := NewEngine(DefaultRuleSets(), config.PolicyPermissive, testLogger())

	inputs := []domain.CandidateItem{
		{},
		{Text: "hotdog hot dog sausage bratwurst frankfurter wiener corn dog", EngagementScore: 10000, MediaURL: "a.gif"},
		{Text: "nsfw gore explicit content buy now click here discount forex election"},
		{Text: strings.Repeat("HOTDOG!!! ", 100)},
		{Text: "普通のテキスト ホットドッグ"},
		{Text: "a"},
	}

	for _, item := range inputs {
		for _, e := range []*Engine{strict, permissive} {
			got := e.Classify(item)
			assert.GreaterOrEqual(t, got.Confidence, 0.0, "text=%q", item.Text)
			assert.LessOrEqual(t, got.Confidence, 1.0, "text=%q", item.Text)
		}
	}
}

func TestClassify_HeuristicSpamSignals(t *testing.T) {
	e := strictEngine(t)

	t.Run("combined heuristics flag spam", func(t *testing.T) {
		analysis := e.Classify(domain.CandidateItem{
			Text: "hotdog deals http://a.com http://b.com http://c.com call 555-123-4567",
		})
		assert.True(t, analysis.IsSpam)
		assert.Contains(t, analysis.FlaggedPatterns, "heuristic.url_flood")
		assert.Contains(t, analysis.FlaggedPatterns, "heuristic.phone_number")
	})

	t.Run("single heuristic is not enough", func(t *testing.T) {
		analysis := e.Classify(domain.CandidateItem{
			Text: "wow!!!! what a hotdog",
		})
		assert.False(t, analysis.IsSpam)
		assert.Contains(t, analysis.FlaggedPatterns, "heuristic.exclamation_flood")
	})

	t.Run("shouting plus emails flags spam", func(t *testing.T) {
		analysis := e.Classify(domain.CandidateItem{
			Text: "AMAZING HOTDOG DEALS CONTACT a@b.com c@d.com NOW",
		})
		assert.True(t, analysis.IsSpam)
		assert.Contains(t, analysis.FlaggedPatterns, "heuristic.shouting")
		assert.Contains(t, analysis.FlaggedPatterns, "heuristic.email_flood")
	})
}

func TestClassify_RegexRules(t *testing.T) {
	sets := RuleSets{
		Required: []Rule{{ID: "topic.dog", Pattern: `\bdogs?\b`, Regex: true}},
	}
	e := NewEngine(sets, config.PolicyStrict, testLogger())

	assert.True(t, e.Classify(domain.CandidateItem{Text: "two dogs walked by"}).IsValidTopic)
	assert.False(t, e.Classify(domain.CandidateItem{Text: "dogged pursuit"}).IsValidTopic)
}

func TestNewEngine_SkipsMalformedRules(t *testing.T) {
	sets := RuleSets{
		Required: []Rule{
			{ID: "bad", Pattern: `(unclosed`, Regex: true},
			{ID: "good", Pattern: "hotdog"},
		},
	}

	var e *Engine
	require.NotPanics(t, func() {
		e = NewEngine(sets, config.PolicyStrict, testLogger())
	})

	analysis := e.Classify(domain.CandidateItem{Text: "hotdog time"})
	assert.True(t, analysis.IsValidTopic)
}
