// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// # Key Types
//
//   - Role: who produced a turn (user or assistant)
//   - Turn: one immutable message
//   - Conversation: a titled, ordered sequence of turns with a stable ID
//
// # Usage
//
//	conv := model.NewConversation("What is 2+2?")
//	err := conv.AppendPair(model.UserTurn("What is 2+2?"), model.AssistantTurn("4"))
//
// Turns are only ever appended in user/assistant pairs, so a conversation
// always alternates starting with the user.
package model
