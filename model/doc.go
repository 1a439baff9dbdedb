// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside agentrelay.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition)
//   - Resolve an agent's model identifier to a Model (Provider)
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so the runner remains decoupled from vendor SDKs.
package model
