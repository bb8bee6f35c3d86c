package rerank

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	"github.com/soundprediction/predmap/pkg/search"
)

// Outcome classifies a parsed model response.
type Outcome int

const (
	// OutcomeUnparseable means no usable answer was recovered; the caller
	// must fall back to retrieval.
	OutcomeUnparseable Outcome = iota
	// OutcomeNone means the model explicitly answered "none".
	OutcomeNone
	// OutcomeConfident means the model picked one of the offered choices.
	OutcomeConfident
)

// ParseResult is the outcome of parsing a reranking response. Predicate is a
// canonical biolink curie, set only for OutcomeConfident. Negated is "True"
// or "False".
type ParseResult struct {
	Outcome   Outcome
	Predicate string
	Negated   string
}

var (
	codeFenceRe = regexp.MustCompile("```(?:json)?\n?")
	// Locates a JSON object carrying both expected keys anywhere in the
	// response, tolerating prose around it.
	answerObjectRe = regexp.MustCompile(`(?is)\{[^{}]*["']mapped_predicate["']\s*:\s*[^{}]*?["']\s*,\s*["']negated["']\s*:\s*[^{}]*?\}`)

	smartQuotes = strings.NewReplacer(
		"‘", "'", "’", "'",
		"“", `"`, "”", `"`,
	)
)

// ExtractMappedPredicate parses a model response against the offered
// choices. choices maps human-readable predicate names to descriptions.
//
// The parse works in stages: strip code fences, locate the answer object by
// regex, parse it strictly, then permissively via JSON repair. The recovered
// value must name one of the choices (matched case-insensitively against
// keys, then against descriptions); anything else is unparseable.
func ExtractMappedPredicate(response string, choices map[string]string) ParseResult {
	unparseable := ParseResult{Outcome: OutcomeUnparseable, Negated: "False"}

	cleaned := codeFenceRe.ReplaceAllString(strings.TrimSpace(response), "")
	cleaned = strings.Trim(cleaned, "` \n")
	cleaned = smartQuotes.Replace(cleaned)

	match := answerObjectRe.FindString(cleaned)
	if match == "" {
		return unparseable
	}

	parsed, err := parseAnswerObject(match)
	if err != nil {
		return unparseable
	}

	mapped := strings.TrimSpace(stringValue(parsed["mapped_predicate"]))
	negated := capitalizeBool(parsed["negated"])

	if strings.EqualFold(mapped, "none") {
		return ParseResult{Outcome: OutcomeNone, Negated: negated}
	}
	if mapped == "" {
		return unparseable
	}

	if canonical, ok := matchChoice(mapped, choices); ok {
		return ParseResult{Outcome: OutcomeConfident, Predicate: canonical, Negated: negated}
	}
	return unparseable
}

func parseAnswerObject(candidate string) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
		return parsed, nil
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return nil, fmt.Errorf("repaired response still invalid: %w", err)
	}
	return parsed, nil
}

// matchChoice resolves a model answer to a canonical biolink curie. Keys
// match case-insensitively; failing that, the answer is matched against
// choice descriptions, exactly or as a substring.
func matchChoice(mapped string, choices map[string]string) (string, bool) {
	lower := strings.ToLower(mapped)

	for key := range choices {
		if strings.ToLower(key) == lower {
			return search.CanonicalPredicate(key), true
		}
	}

	for key, desc := range choices {
		d := strings.ToLower(strings.TrimSpace(desc))
		if d == "" {
			continue
		}
		if lower == d || strings.Contains(d, lower) {
			return search.CanonicalPredicate(key), true
		}
	}

	return "", false
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// capitalizeBool normalizes a negated value ("true", True, "FALSE") to the
// wire form "True"/"False". Missing or unrecognized values mean "False".
func capitalizeBool(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "True"
		}
	case string:
		if strings.EqualFold(strings.TrimSpace(t), "true") {
			return "True"
		}
	}
	return "False"
}
