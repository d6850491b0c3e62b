// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for FlashQuery.
//
// The whole set of conversations is held in memory and written through to
// a kvstore.Store under a single key after every mutation, so what is on
// disk always mirrors what the store reports.
//
// # Key Types
//
//   - ConversationStore: the in-memory map reconciled with the kv store
//   - Summary: lightweight metadata for listing
//
// # Usage
//
//	kv, _ := kvstore.Open(kvstore.BackendFile, dataDir)
//	store, err := storage.Open(kv)
//	id, err := store.StartOrContinue("", "What is 2+2?")
//	err = store.AppendTurnPair(id, model.UserTurn("What is 2+2?"), model.AssistantTurn("4"))
//
// # Legacy History
//
// Older clients kept a flat list of messages under "flashquery_history".
// On first open that list is imported once (one conversation per
// question/answer pair) and a marker key prevents re-import. The flat list
// itself is left untouched.
package storage
