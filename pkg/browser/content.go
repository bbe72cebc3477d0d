package browser

import "strings"

// mainContentScript walks an ordered list of semantic containers and
// returns the first one with visible text, falling back to the body.
const mainContentScript = `() => {
	let content = '';

	const selectors = [
		'main',
		'article',
		'.main-content',
		'#content',
		'.content',
		'body'
	];

	for (const selector of selectors) {
		const element = document.querySelector(selector);
		if (element) {
			content = element.innerText || '';
			if (content.trim().length > 0) break;
		}
	}

	if (!content || content.trim().length === 0) {
		content = document.body ? (document.body.innerText || '') : '';
	}

	return content;
}`

// collapseWhitespace folds all runs of whitespace into single spaces and
// trims the result.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps s at maxLen characters. The cut falls on a rune
// boundary so multibyte text stays valid UTF-8, and the cap counts
// characters rather than bytes so CJK pages keep the same budget as
// ASCII ones. Page content can exceed any reasonable prompt budget, so
// the controller enforces the cap itself rather than trusting the
// in-page script.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == maxLen {
			return s[:i]
		}
		count++
	}
	return s
}
