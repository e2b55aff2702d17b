// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

/*
Package logger provides structured JSON logging for genaikit components.

Each entry is written as a single JSON line containing:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Component name (api, client, cli, history, storage, scaffold)
  - Instance ID and container name
  - Request ID (for request correlation)
  - Custom fields

# Usage

	log := logger.New("api")
	log.Info(requestID, "generation completed", map[string]interface{}{
	    "provider": "openai",
	})

	start := time.Now()
	// ... call provider ...
	log.InfoWithDuration(requestID, "request completed",
	    float64(time.Since(start).Milliseconds()), nil)

Entries below the LOG_LEVEL threshold are dropped. Output goes to stderr so
CLI commands can keep stdout for results; WithOutput redirects it.

# Environment Variables

  - LOG_LEVEL: DEBUG, INFO, WARN or ERROR (default INFO)
  - INSTANCE_ID: Deployment instance identifier

# Thread Safety

Logger instances are safe for concurrent use from multiple goroutines.
*/
package logger
