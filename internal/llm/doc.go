// Package llm implements the transform stage: raw card text in, structured
// CardDetails out, using the Gemini generateContent REST API.
//
// The Client speaks the wire protocol (JSON mode with a response schema,
// retries on 429 and 5xx). The Transformer builds the prompt for one card,
// decodes the model's JSON and classifies failures so that callers can
// fall back to a partial record with a useful message.
package llm
