// Package filter classifies candidate items against data-driven rule sets
// and computes a bounded confidence score.
package filter

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"content_scanner/internal/config"
	"content_scanner/internal/domain"
)

// Score model constants. Every adjustment is additive and the running
// confidence is clamped to [0, 0.99] after each step, with a final floor
// at 0.
const (
	baseRequired         = 0.7
	basePermissiveVisual = 0.3
	basePermissiveOther  = 0.2

	boostMedia        = 0.10
	boostExtraMatch   = 0.05 // per distinct required match past the first
	boostExtraMax     = 0.15
	boostEngagement   = 0.05
	boostHotEngage    = 0.10
	engagementMin     = 100
	engagementHot     = 500
	shortTextMax      = 80

	penaltySpam          = 0.4
	penaltyInappropriate = 0.6
	penaltyUnrelated     = 0.4

	clampCeiling = 0.99

	// Each triggered spam heuristic contributes this much to the separate
	// heuristic spam score; at or above heuristicSpamCutoff the item is
	// treated as spam.
	heuristicWeight     = 0.25
	heuristicSpamCutoff = 0.5

	maxURLs         = 2
	maxEmails       = 1
	maxExclamations = 3
	upperRatioLimit = 0.5
	upperMinLength  = 10
)

var (
	urlRe   = regexp.MustCompile(`https?://\S+`)
	emailRe = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phoneRe = regexp.MustCompile(`\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)

	mediaExtRe = regexp.MustCompile(`(?i)\.(?:jpe?g|png|gif|webp|mp4|webm|mov)(?:\?|$)`)
)

// Engine evaluates rule sets against candidate text. Construct once and
// share; Classify is deterministic and safe for concurrent use.
type Engine struct {
	required      []compiledRule
	spam          []compiledRule
	inappropriate []compiledRule
	unrelated     []compiledRule
	policy        string
	logger        *slog.Logger
}

// NewEngine compiles the rule sets. Malformed rules are skipped with a
// warning rather than failing construction.
func NewEngine(sets RuleSets, policy string, logger *slog.Logger) *Engine {
	if policy == "" {
		policy = config.PolicyStrict
	}
	return &Engine{
		required:      compileRules(sets.Required, logger),
		spam:          compileRules(sets.Spam, logger),
		inappropriate: compileRules(sets.Inappropriate, logger),
		unrelated:     compileRules(sets.Unrelated, logger),
		policy:        policy,
		logger:        logger,
	}
}

// Classify scores one candidate. The returned confidence is always in
// [0,1]; FlaggedPatterns lists the IDs of all negative-signal rules and
// heuristics that matched, in evaluation order.
func (e *Engine) Classify(item domain.CandidateItem) domain.ContentAnalysis {
	text := strings.ToLower(item.Text)

	requiredHits := matchAll(e.required, text)
	spamHits := matchAll(e.spam, text)
	inappropriateHits := matchAll(e.inappropriate, text)
	unrelatedHits := matchAll(e.unrelated, text)

	heuristics, heuristicScore := e.spamHeuristics(item.Text)

	analysis := domain.ContentAnalysis{
		IsSpam:          len(spamHits) > 0 || heuristicScore >= heuristicSpamCutoff,
		IsInappropriate: len(inappropriateHits) > 0,
		IsUnrelated:     len(unrelatedHits) > 0,
	}
	analysis.FlaggedPatterns = append(analysis.FlaggedPatterns, spamHits...)
	analysis.FlaggedPatterns = append(analysis.FlaggedPatterns, inappropriateHits...)
	analysis.FlaggedPatterns = append(analysis.FlaggedPatterns, unrelatedHits...)
	analysis.FlaggedPatterns = append(analysis.FlaggedPatterns, heuristics...)

	hasRequired := len(requiredHits) > 0
	permissivePass := e.policy == config.PolicyPermissive && !hasRequired

	var conf float64
	switch {
	case hasRequired:
		conf = baseRequired
	case permissivePass && (hasMediaHint(item.MediaURL) || len(item.Text) < shortTextMax):
		conf = basePermissiveVisual
	default:
		conf = basePermissiveOther
	}

	if hasMediaHint(item.MediaURL) {
		conf = clamp(conf + boostMedia)
	}
	if extra := len(requiredHits) - 1; extra > 0 {
		boost := float64(extra) * boostExtraMatch
		if boost > boostExtraMax {
			boost = boostExtraMax
		}
		conf = clamp(conf + boost)
	}
	switch {
	case item.EngagementScore >= engagementHot:
		conf = clamp(conf + boostHotEngage)
	case item.EngagementScore >= engagementMin:
		conf = clamp(conf + boostEngagement)
	}

	if analysis.IsSpam {
		conf -= penaltySpam
	}
	if analysis.IsInappropriate {
		conf -= penaltyInappropriate
	}
	if analysis.IsUnrelated {
		conf -= penaltyUnrelated
	}
	if conf < 0 {
		conf = 0
	}

	analysis.Confidence = conf
	analysis.IsValidTopic = (hasRequired || e.policy == config.PolicyPermissive) &&
		!analysis.IsSpam && !analysis.IsInappropriate

	return analysis
}

// spamHeuristics runs the rule-set-independent spam signals over the raw
// (unlowered) text. It returns the triggered heuristic IDs and their
// combined clamped score.
func (e *Engine) spamHeuristics(text string) ([]string, float64) {
	var hits []string
	var score float64

	add := func(id string) {
		hits = append(hits, id)
		score = clamp(score + heuristicWeight)
	}

	if len(urlRe.FindAllStringIndex(text, -1)) > maxURLs {
		add("heuristic.url_flood")
	}
	if len(emailRe.FindAllStringIndex(text, -1)) > maxEmails {
		add("heuristic.email_flood")
	}
	if phoneRe.MatchString(text) {
		add("heuristic.phone_number")
	}
	if strings.Count(text, "!") > maxExclamations {
		add("heuristic.exclamation_flood")
	}
	if upper, letters := caseCounts(text); letters > upperMinLength &&
		float64(upper)/float64(letters) > upperRatioLimit {
		add("heuristic.shouting")
	}

	return hits, score
}

func matchAll(rules []compiledRule, normText string) []string {
	var ids []string
	for _, r := range rules {
		if r.matches(normText) {
			ids = append(ids, r.id)
		}
	}
	return ids
}

func hasMediaHint(mediaURL string) bool {
	return mediaURL != "" && mediaExtRe.MatchString(mediaURL)
}

func caseCounts(s string) (upper, letters int) {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return upper, letters
}

func clamp(v float64) float64 {
	if v > clampCeiling {
		return clampCeiling
	}
	return v
}
