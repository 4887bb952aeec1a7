// Package search queries web search APIs for evidence about a claim.
//
// Two backends are supported: Serper (Google results) and Tavily. Both
// return model.Source values so the research stage does not care which
// one is configured.
package search
