// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

/*
Package orchestrator is the entry point to the generative-AI client.

Client selects a configured provider adapter by name and forwards generate,
chat and batch calls to it. Successful calls are recorded in the history
store and counted in Prometheus metrics.

The same package exposes the REST API (APIHandler) and Run, which serves
the API together with the dashboard:

	GET  /health
	POST /generate
	POST /chat
	POST /batch
	GET  /providers
	GET  /providers/{provider}/models
	GET  /history
	GET  /metrics

# Configuration

NewClient reads shared/config Settings. OpenAI and Gemini adapters are
created only when their API key is set (directly or through a Secrets
Manager ARN). Bedrock is always attempted with the default AWS credential
chain. An adapter that fails to initialize is logged and skipped.

When API_JWT_SECRET is set every route except /health, /metrics and
/dashboard/login requires an HS256 token. The dashboard accepts it once on
its login page and keeps it in an HttpOnly cookie.
*/
package orchestrator
