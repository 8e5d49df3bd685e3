package engine

import (
	"regexp"
	"strings"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// planLinePattern matches one numbered plan line with an optional
// [DISCUSS]/[TOOL]/[VERIFY] tag.
var planLinePattern = regexp.MustCompile(`^\s*\d+[.)]\s*(?:\[(DISCUSS|TOOL|VERIFY)\]\s*)?(.+?)\s*$`)

// pathTokenPattern picks path-like tokens out of free text: something with a
// directory separator or a file extension.
var pathTokenPattern = regexp.MustCompile(`[\w@~-]*(?:/[\w.@~-]+)+|\b[\w-]+\.[A-Za-z]{1,8}\b`)

// parsePlan turns a model-written numbered list into tagged steps. Untagged
// lines default to the tool tag; non-numbered lines are commentary and are
// dropped.
func parsePlan(text string) []types.PlanStep {
	var steps []types.PlanStep

	for _, line := range strings.Split(text, "\n") {
		match := planLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		tag := types.PlanTagTool
		switch match[1] {
		case "DISCUSS":
			tag = types.PlanTagDiscuss
		case "VERIFY":
			tag = types.PlanTagVerify
		}

		steps = append(steps, types.PlanStep{
			Index: len(steps),
			Text:  match[2],
			Tag:   tag,
		})
	}

	return steps
}

// extractPathTokens pulls path-like tokens from the prompt, skipping URLs
// and bare version-looking numbers.
func extractPathTokens(text string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, token := range pathTokenPattern.FindAllString(text, -1) {
		token = strings.Trim(token, ".,;:")
		if token == "" || seen[token] {
			continue
		}
		if strings.Contains(text, "://"+strings.TrimPrefix(token, "/")) {
			continue
		}
		if versionPattern.MatchString(token) {
			continue
		}
		seen[token] = true
		out = append(out, token)
	}

	return out
}

var versionPattern = regexp.MustCompile(`^v?\d+(\.\d+)+$`)
