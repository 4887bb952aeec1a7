// Package llm talks to the language models that write the research,
// analysis and verification texts.
//
// Every provider is hidden behind the Client interface so that the
// pipeline never depends on a vendor SDK:
//
//	client, err := llm.New(cfg)
//	text, err := client.Complete(ctx, llm.Request{
//	    System: "You are a fact verifier.",
//	    Prompt: "Is the Great Wall visible from space?",
//	})
//
// OpenAIClient uses the chat completions API and also works against
// OpenAI-compatible gateways through a custom base URL. GeminiClient uses
// the Google Gen AI SDK. RateLimited wraps any client in a shared token
// bucket so that batch checks stay under the provider's quota.
package llm
