package processor

import "strings"

// ExtractTrigger returns the command word of a chat line and whether one
// was found. "!bet open" yields "bet"; "hello", "" and "! x" yield none.
//
// A line without spaces keeps its case ("!Hello" yields "Hello") while a
// multi-word line is lowercased. Features register lowercase triggers, so
// a one-word line in mixed case matches nothing. Existing command lines
// depend on this, so both paths are kept as they are.
func ExtractTrigger(text string) (string, bool) {
	if text == "" || text[0] != '!' {
		return "", false
	}
	if len(text) > 1 && text[1] == ' ' {
		return "", false
	}
	word, _, found := strings.Cut(text[1:], " ")
	if !found {
		return word, true
	}
	return strings.ToLower(word), true
}
