package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	DimColor          tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	OnlineColor       tcell.Color
	OwnMessageColor   tcell.Color
	PeerMessageColor  tcell.Color
	ReadColor         tcell.Color
	UnreadColor       tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		DimColor:          tcell.ColorGray,
		BorderColor:       tcell.ColorDodgerBlue,
		BorderFocusColor:  tcell.ColorLightSkyBlue,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorAqua,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorOrange,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorAqua,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		TitleColor:        tcell.ColorFuchsia,
		CounterColor:      tcell.ColorPapayaWhip,
		OnlineColor:       tcell.ColorLimeGreen,
		OwnMessageColor:   tcell.ColorLightSkyBlue,
		PeerMessageColor:  tcell.ColorNavajoWhite,
		ReadColor:         tcell.ColorDodgerBlue,
		UnreadColor:       tcell.ColorOrange,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,
	}
}

// Tag returns c as a tview color tag name.
func Tag(c tcell.Color) string {
	return colorName(c)
}
