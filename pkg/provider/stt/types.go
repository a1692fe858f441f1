package stt

// Transcript is the result of a batch transcription.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// Model that produced the transcript.
	Model string
}
