// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the FlashQuery TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple: assistant replies and selection
  - Cyan: brand color and user highlights
  - Emerald: success states
  - Amber: warnings and the pending-context badge
  - Rose: errors and delete prompts

# Theme System (theme.go)

	theme := styles.NewTheme()
	bubble := theme.BubbleFor(model.RoleUser)

DisableColor forces the ASCII color profile, for NO_COLOR and piped output.
*/
package styles
