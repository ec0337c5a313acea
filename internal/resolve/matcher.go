package resolve

import "strings"

// Match scores the question against every template in the library and
// returns the id of the best match. The score of a template is the
// count of its keywords occurring case-insensitively anywhere in the
// question. Returns false when no template scores above zero.
//
// Ties on the maximum score resolve to the first template in
// declaration order, so template file ordering doubles as priority.
func Match(question string, lib *Library) (string, bool) {
	if lib == nil || lib.Len() == 0 {
		return "", false
	}

	questionLower := strings.ToLower(question)

	bestID := ""
	bestScore := 0

	for _, tmpl := range lib.Templates() {
		score := 0

		for _, keyword := range tmpl.Keywords {
			if keyword == "" {
				continue
			}

			if strings.Contains(questionLower, strings.ToLower(keyword)) {
				score++
			}
		}

		if score > bestScore {
			bestScore = score
			bestID = tmpl.ID
		}
	}

	return bestID, bestScore > 0
}
