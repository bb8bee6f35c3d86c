package rerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testChoices = map[string]string{
	"treats":     "holds between a therapy and a condition it remediates",
	"causes":     "holds between an entity and a condition it brings about",
	"related to": "related to",
}

func TestExtractMappedPredicateCleanJSON(t *testing.T) {
	result := ExtractMappedPredicate(`{"mapped_predicate": "treats", "negated": "False"}`, testChoices)

	assert.Equal(t, OutcomeConfident, result.Outcome)
	assert.Equal(t, "biolink:treats", result.Predicate)
	assert.Equal(t, "False", result.Negated)
}

func TestExtractMappedPredicateCodeFence(t *testing.T) {
	response := "```json\n{\"mapped_predicate\": \"causes\", \"negated\": \"True\"}\n```"
	result := ExtractMappedPredicate(response, testChoices)

	assert.Equal(t, OutcomeConfident, result.Outcome)
	assert.Equal(t, "biolink:causes", result.Predicate)
	assert.Equal(t, "True", result.Negated)
}

func TestExtractMappedPredicateSurroundingProse(t *testing.T) {
	response := `Sure! Based on the abstract, the best match is:
{"mapped_predicate": "related to", "negated": "False"}
Hope that helps.`
	result := ExtractMappedPredicate(response, testChoices)

	assert.Equal(t, OutcomeConfident, result.Outcome)
	assert.Equal(t, "biolink:related_to", result.Predicate)
}

func TestExtractMappedPredicateSmartQuotes(t *testing.T) {
	response := `{“mapped_predicate”: “treats”, “negated”: “False”}`
	result := ExtractMappedPredicate(response, testChoices)

	assert.Equal(t, OutcomeConfident, result.Outcome)
	assert.Equal(t, "biolink:treats", result.Predicate)
}

func TestExtractMappedPredicateSingleQuotesRepaired(t *testing.T) {
	response := `{'mapped_predicate': 'treats', 'negated': 'False'}`
	result := ExtractMappedPredicate(response, testChoices)

	assert.Equal(t, OutcomeConfident, result.Outcome)
	assert.Equal(t, "biolink:treats", result.Predicate)
}

func TestExtractMappedPredicateCaseInsensitiveKey(t *testing.T) {
	result := ExtractMappedPredicate(`{"mapped_predicate": "Treats", "negated": "false"}`, testChoices)

	assert.Equal(t, OutcomeConfident, result.Outcome)
	assert.Equal(t, "biolink:treats", result.Predicate)
	assert.Equal(t, "False", result.Negated)
}

func TestExtractMappedPredicateMatchesDescription(t *testing.T) {
	response := `{"mapped_predicate": "holds between a therapy and a condition", "negated": "False"}`
	result := ExtractMappedPredicate(response, testChoices)

	assert.Equal(t, OutcomeConfident, result.Outcome)
	assert.Equal(t, "biolink:treats", result.Predicate, "answer should reverse-match the description")
}

func TestExtractMappedPredicateExplicitNone(t *testing.T) {
	result := ExtractMappedPredicate(`{"mapped_predicate": "none", "negated": "True"}`, testChoices)

	assert.Equal(t, OutcomeNone, result.Outcome)
	assert.Empty(t, result.Predicate)
	assert.Equal(t, "True", result.Negated, "explicit none keeps the parsed negation")
}

func TestExtractMappedPredicateUnparseable(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"empty", ""},
		{"prose only", "The predicate is treats."},
		{"missing negated key", `{"mapped_predicate": "treats"}`},
		{"hallucinated choice", `{"mapped_predicate": "cures", "negated": "False"}`},
		{"empty predicate", `{"mapped_predicate": "", "negated": "False"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractMappedPredicate(tt.response, testChoices)
			assert.Equal(t, OutcomeUnparseable, result.Outcome)
			assert.Equal(t, "False", result.Negated)
		})
	}
}

func TestCapitalizeBool(t *testing.T) {
	assert.Equal(t, "True", capitalizeBool("true"))
	assert.Equal(t, "True", capitalizeBool("TRUE"))
	assert.Equal(t, "True", capitalizeBool(true))
	assert.Equal(t, "False", capitalizeBool("false"))
	assert.Equal(t, "False", capitalizeBool(nil))
	assert.Equal(t, "False", capitalizeBool("maybe"))
}
