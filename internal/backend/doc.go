// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the FlashQuery inference
// service.
//
// # Endpoints
//
//   - GET  /         health check
//   - POST /ask      {question, context} -> {answer}
//   - POST /youtube  {url} -> {summary}
//   - POST /upload   multipart "file" -> {message | error, extracted_text}
//
// Each call issues exactly one request. There is no retry; callers decide
// how to present a failure.
package backend
