// Package tagger resolves free-text entry descriptions to tags using the
// ordered per-account rule list, and reports the transfer target account of
// rules that model money moving between accounts.
package tagger

import (
	"fmt"
	"regexp"

	"github.com/nessita/cgem/internal/logging"
	"github.com/nessita/cgem/internal/models"
)

// Match is one resolved rule: the tag to apply and, when the rule models an
// inter-account movement, the account that receives the mirrored entry.
type Match struct {
	Tag      string
	Transfer *models.Account
}

type rule struct {
	re       *regexp.Regexp
	tag      string
	transfer *models.Account
}

// Resolver evaluates an account's tag rules against descriptions. Rules are
// matched from the start of the string, in their configured order.
type Resolver struct {
	rules  []rule
	logger logging.Logger
}

// NewResolver compiles the given rules. A rule whose pattern does not
// compile is a configuration error and fails the whole resolver.
func NewResolver(rules []models.TagRegex, logger logging.Logger) (*Resolver, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}

	r := &Resolver{logger: logger}
	for _, tr := range rules {
		// Anchor at the start so rules behave as prefixes unless the
		// pattern says otherwise.
		re, err := regexp.Compile("^(?:" + tr.Regex + ")")
		if err != nil {
			return nil, fmt.Errorf("invalid tag rule %q: %w", tr.Regex, err)
		}
		r.rules = append(r.rules, rule{re: re, tag: tr.Tag, transfer: tr.Transfer})
	}
	return r, nil
}

// TagsFor returns the matches for the given description, in rule order.
// Each tag appears at most once; when several rules produce the same tag
// the first one wins. A description may match zero, one or many rules.
func (r *Resolver) TagsFor(text string) []Match {
	var matches []Match
	seen := make(map[string]bool)
	for _, rule := range r.rules {
		if !rule.re.MatchString(text) {
			continue
		}
		if seen[rule.tag] {
			continue
		}
		seen[rule.tag] = true
		matches = append(matches, Match{Tag: rule.tag, Transfer: rule.transfer})
		r.logger.Debug("tag rule matched",
			logging.Field{Key: "pattern", Value: rule.re.String()},
			logging.Field{Key: "tag", Value: rule.tag})
	}
	return matches
}

// Tags returns just the tags of TagsFor, preserving order.
func (r *Resolver) Tags(text string) []string {
	matches := r.TagsFor(text)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m.Tag)
	}
	return tags
}
