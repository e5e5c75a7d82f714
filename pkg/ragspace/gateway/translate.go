package gateway

import "github.com/ragspace/ragspace/pkg/ragspace/gemini"

// translate converts an OpenAI message list into file-search query
// parameters. System messages never reach the upstream transcript: the
// space's stored system instruction governs behavior instead. When the
// remaining conversation is a single user message its content is passed
// directly as the query rather than as a one-turn transcript.
func translate(messages []Message) (query string, turns []gemini.Turn) {
	var kept []Message
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		kept = append(kept, m)
	}

	if len(kept) == 1 && kept[0].Role == "user" {
		return kept[0].Content, nil
	}

	for _, m := range kept {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		turns = append(turns, gemini.Turn{Role: role, Text: m.Content})
	}
	return "", turns
}

// validMessages reports whether the request carries a usable conversation:
// a non-empty list where every message has a role, and at least one
// non-system message survives translation.
func validMessages(messages []Message) bool {
	if len(messages) == 0 {
		return false
	}
	nonSystem := 0
	for _, m := range messages {
		if m.Role == "" {
			return false
		}
		if m.Role != "system" {
			nonSystem++
		}
	}
	return nonSystem > 0
}
