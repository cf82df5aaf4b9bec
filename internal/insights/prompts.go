package insights

import "strings"

// buildPrompt assembles the instruction block for one insight kind with
// the serialized context object attached.
func buildPrompt(kind Kind, contextJSON string) string {
	basePrompt :=
		"You are a personal-finance assistant analyzing a user's ledger data.\n\n" +
			"Task:\n" +
			"- Read the attached JSON context.\n" +
			"- Produce one concise insight in the user's interest.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"- Output a single JSON object.\n\n" +
			"The object must have these fields:\n" +
			"- \"title\": string, short headline\n" +
			"- \"summary\": string, 2-4 sentences\n" +
			"- \"suggestions\": array of strings (may be empty)\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- Base every statement on the attached data; never invent figures.\n" +
			"- Keep amounts exactly as given, do not convert currencies.\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Do NOT use ```json or any Markdown.\n" +
			"Output must begin with \"{\" and end with \"}\".\n"

	return basePrompt + kindPrompt(kind) + "\n\n" + rulesPrompt + "\nContext:\n" + contextJSON
}

func kindPrompt(kind Kind) string {
	switch kind {
	case KindAccountAnalysis:
		return "Focus: the account's balance trajectory, notable income and expense patterns."
	case KindInvoiceAnalysis:
		return "Focus: the credit-card invoice's composition, unusual charges, and limit usage."
	case KindSavingsGoalFeedback:
		return "Focus: progress toward the savings goal and whether the pace meets the deadline."
	case KindWeeklySummary:
		return "Focus: the week's net movement, biggest categories, and upcoming obligations."
	}
	return ""
}

// cleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes adds despite instructions, keeping the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON object, keep
	// only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
