// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

// Package wordboard holds the fixed picture board shown to signed-in users.
package wordboard

// Item is one tile on the board.
type Item struct {
	Word string `json:"word"`
	Icon string `json:"icon"`
}

var items = [...]Item{
	{Word: "Drink", Icon: "🥤"},
	{Word: "Hungry", Icon: "🍗"},
	{Word: "Toilet", Icon: "🚽"},
	{Word: "Help", Icon: "🆘"},
	{Word: "More", Icon: "➕"},
	{Word: "Stop", Icon: "🛑"},
	{Word: "Yes", Icon: "✅"},
	{Word: "No", Icon: "❌"},
}

// Items returns the board in display order. The slice is a copy.
func Items() []Item {
	out := make([]Item, len(items))
	copy(out, items[:])
	return out
}
