// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AskRequest is the body of POST /ask. Context is null when no document
// context is attached.
type AskRequest struct {
	Question string  `json:"question"`
	Context  *string `json:"context"`
}

// YouTubeRequest is the body of POST /youtube.
type YouTubeRequest struct {
	URL string `json:"url"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AskResponse is the body returned by /ask. Answer is empty when the
// service could not produce one.
type AskResponse struct {
	Answer string `json:"answer,omitempty"`
}

// YouTubeResponse is the body returned by /youtube.
type YouTubeResponse struct {
	Summary string `json:"summary,omitempty"`
}

// UploadResponse is the body returned by /upload. Exactly one of Message
// and Error is set.
type UploadResponse struct {
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	ExtractedText string `json:"extracted_text"`
}

// ServiceInfo is the body returned by the health check.
type ServiceInfo struct {
	Message string `json:"message"`
}
