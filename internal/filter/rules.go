package filter

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is a single data-driven pattern. Non-regex rules match as literal
// case-insensitive substrings; regex rules compile as case-insensitive
// regular expressions. The ID is an opaque audit label.
type Rule struct {
	ID      string `yaml:"id"`
	Pattern string `yaml:"pattern"`
	Regex   bool   `yaml:"regex,omitempty"`
}

// RuleSets groups the four named rule collections the engine evaluates.
type RuleSets struct {
	Required      []Rule `yaml:"required"`
	Spam          []Rule `yaml:"spam"`
	Inappropriate []Rule `yaml:"inappropriate"`
	Unrelated     []Rule `yaml:"unrelated"`
}

// LoadRuleSets reads rule sets from a yaml file, falling back to the
// built-in defaults if the path is empty or the file cannot be read or
// parsed. The engine must work with zero external configuration.
func LoadRuleSets(path string, logger *slog.Logger) RuleSets {
	if path == "" {
		return DefaultRuleSets()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("rules file unavailable, using defaults", "path", path, "error", err)
		return DefaultRuleSets()
	}

	var sets RuleSets
	if err := yaml.Unmarshal(data, &sets); err != nil {
		logger.Warn("rules file unparseable, using defaults", "path", path, "error", err)
		return DefaultRuleSets()
	}

	if len(sets.Required) == 0 {
		logger.Warn("rules file has no required terms, using default required set", "path", path)
		sets.Required = DefaultRuleSets().Required
	}

	return sets
}

// DefaultRuleSets returns the hard-coded fallback rules for the
// street-food vertical.
func DefaultRuleSets() RuleSets {
	return RuleSets{
		Required: []Rule{
			{ID: "topic.hotdog", Pattern: "hotdog"},
			{ID: "topic.hot_dog", Pattern: "hot dog"},
			{ID: "topic.corn_dog", Pattern: "corn dog"},
			{ID: "topic.sausage", Pattern: "sausage"},
			{ID: "topic.bratwurst", Pattern: "bratwurst"},
			{ID: "topic.frankfurter", Pattern: "frankfurter"},
			{ID: "topic.wiener", Pattern: "wiener"},
			{ID: "topic.chili_dog", Pattern: "chili dog"},
			{ID: "topic.street_food", Pattern: "street food"},
		},
		Spam: []Rule{
			{ID: "spam.buy_now", Pattern: "buy now"},
			{ID: "spam.click_here", Pattern: "click here"},
			{ID: "spam.discount", Pattern: "discount"},
			{ID: "spam.promo_code", Pattern: "promo code"},
			{ID: "spam.free_shipping", Pattern: "free shipping"},
			{ID: "spam.limited_offer", Pattern: "limited time offer"},
			{ID: "spam.subscribe", Pattern: "subscribe to my"},
			{ID: "spam.dm_me", Pattern: `\bdm me\b`, Regex: true},
			{ID: "spam.crypto_pump", Pattern: `\b(?:airdrops?|giveaways?)\b.{0,40}\b(?:crypto|token|nft)s?\b`, Regex: true},
		},
		Inappropriate: []Rule{
			{ID: "inapp.nsfw", Pattern: "nsfw"},
			{ID: "inapp.explicit", Pattern: "explicit content"},
			{ID: "inapp.gore", Pattern: `\bgore\b`, Regex: true},
			{ID: "inapp.onlyfans", Pattern: "onlyfans"},
			{ID: "inapp.adult_only", Pattern: "18+ only"},
		},
		Unrelated: []Rule{
			{ID: "unrelated.politics", Pattern: `\b(?:election|senate|congress)\b`, Regex: true},
			{ID: "unrelated.sports_betting", Pattern: "betting odds"},
			{ID: "unrelated.forex", Pattern: `\bforex\b`, Regex: true},
			{ID: "unrelated.follow_train", Pattern: "follow for follow"},
		},
	}
}

// compiledRule is a Rule ready for evaluation. Exactly one of substr or re
// is set.
type compiledRule struct {
	id     string
	substr string
	re     *regexp.Regexp
}

func (r compiledRule) matches(normText string) bool {
	if r.re != nil {
		return r.re.MatchString(normText)
	}
	return strings.Contains(normText, r.substr)
}

// compileRules prepares a rule list for matching. A rule that fails to
// compile is logged and skipped; it never brings down classification.
func compileRules(rules []Rule, logger *slog.Logger) []compiledRule {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if strings.TrimSpace(r.Pattern) == "" {
			continue
		}
		if !r.Regex {
			out = append(out, compiledRule{id: r.ID, substr: strings.ToLower(r.Pattern)})
			continue
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			logger.Warn("skipping malformed rule",
				"rule_id", r.ID,
				"pattern", r.Pattern,
				"error", fmt.Sprint(err),
			)
			continue
		}
		out = append(out, compiledRule{id: r.ID, re: re})
	}
	return out
}
