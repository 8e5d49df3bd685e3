package engine

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhl-labs/sepilot-desktop-sub001/tools"
)

const maxRecommendedFiles = 8

// ListingRecommender is the default codebase analyzer: it matches prompt
// words against base names in the workdir listing. A cheap heuristic, but it
// keeps requiredFiles grounded in files that actually exist.
type ListingRecommender struct{}

func NewListingRecommender() *ListingRecommender { return &ListingRecommender{} }

func (r *ListingRecommender) RecommendFiles(_ context.Context, workdir, prompt string) []string {
	words := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(prompt)) {
		word = strings.Trim(word, `.,;:"'()[]`)
		if len(word) >= 3 {
			words[word] = true
		}
	}
	if len(words) == 0 {
		return nil
	}

	var out []string
	for path := range tools.Listing(workdir) {
		base := strings.ToLower(filepath.Base(path))
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if words[base] || (len(stem) >= 3 && words[stem]) {
			out = append(out, path)
		}
	}

	sort.Strings(out)
	if len(out) > maxRecommendedFiles {
		out = out[:maxRecommendedFiles]
	}
	return out
}
