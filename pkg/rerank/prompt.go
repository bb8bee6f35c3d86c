// Package rerank selects the final predicate for each edge: it prompts a
// chat model with the retrieval candidates, parses the response defensively,
// and falls back to the top retrieval candidate when the model cannot answer.
package rerank

import (
	"encoding/json"
	"fmt"

	"github.com/soundprediction/predmap/pkg/types"
)

const promptTemplate = `Given this input:
    subject = %s
    object = %s
    relationship = %s
    abstract = %s
    predicate_choices = %s

For each key in predicate_choices, the corresponding value is the description of the key.

Your Task:
    1. Select the most appropriate key from predicate_choices to replace the given relationship.
    2. Ensure the replacement preserves both **meaning** and **directionality** of the subject-object pair.
    3. Understand that relationships may be **negated** (e.g., "does not cause", "fails to inhibit").
        - If a predicate in predicate_choices directly matches the **negated meaning**, use that.
        - If a predicate matches the base meaning but you must negate it to capture the intended meaning, select that predicate and set "negated": "True" in the response.
        - Otherwise, use "negated": "False".

Output:
    A JSON object with these exact keys and format:
    {"mapped_predicate": "Top one predicate choice" if a good match exists, otherwise "none", "negated": "True" or "False"}

Do not include any other output or explanation. Only output the JSON object.`

// Prompt builds the reranking prompt for an edge. PredicateChoices must be
// attached before calling.
func Prompt(edge *types.Edge) string {
	choices, err := json.Marshal(edge.PredicateChoices)
	if err != nil {
		choices = []byte("{}")
	}
	return fmt.Sprintf(promptTemplate,
		edge.Subject, edge.Object, edge.Relationship, edge.Abstract, choices)
}
