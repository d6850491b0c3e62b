// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the per-process chat state: which conversation is
// active and which document context is attached to outgoing questions.
//
// # Key Types
//
//   - Session: active selection, pending context, and the operations that
//     must update them together with storage
//
// # Usage
//
//	sess := session.New(store, dispatcher)
//	reply, err := sess.Send(ctx, "What is 2+2?")
//	sess.Delete(sess.ActiveID()) // clears the active selection
//
// A Session is safe for concurrent use, but commits are expected to come
// from one event loop so turn pairs land in the order replies arrive.
package session
