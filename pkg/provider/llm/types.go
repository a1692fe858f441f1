package llm

// Message is a single entry in an LLM conversation.
type Message struct {
	// Role is one of "system", "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string

	// Attachments are binary parts sent alongside Content, in order.
	Attachments []Attachment
}

// Attachment is inline binary input such as an audio file.
type Attachment struct {
	// Name is the original file name, used only for diagnostics.
	Name string

	// MIMEType describes Data, e.g. "audio/mpeg".
	MIMEType string

	// Data holds the raw bytes. Providers encode them as their wire format
	// requires.
	Data []byte
}

// UserMessage returns a user message with text and optional attachments.
func UserMessage(text string, attachments ...Attachment) Message {
	return Message{Role: "user", Content: text, Attachments: attachments}
}

// Capabilities describes what an LLM model supports.
type Capabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate.
	MaxOutputTokens int

	// SupportsAudio indicates the model accepts audio attachments.
	SupportsAudio bool
}
