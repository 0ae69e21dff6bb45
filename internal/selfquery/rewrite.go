package selfquery

// RewriteLastMessage replaces the content of the last message with the
// given role in messages, or appends a new message with that role if none
// is found. This is the documented integration seam a frontend uses to
// splice retrieved context into an outgoing chat turn before handing it to
// a downstream LLM call; it carries no retrieval logic of its own.
func RewriteLastMessage(role string, messages []Message, content string) []Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			out := make([]Message, len(messages))
			copy(out, messages)
			out[i].Content = content
			return out
		}
	}
	out := make([]Message, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, Message{Role: role, Content: content})
}
