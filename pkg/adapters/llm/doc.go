// Package llm adapts chat completion APIs to the text generation and intent
// classification ports.
//
// OpenAI, OpenRouter and Mistral share the OpenAI-compatible client; Anthropic
// uses its own SDK. Every generator prepends an optional system prompt.
package llm
