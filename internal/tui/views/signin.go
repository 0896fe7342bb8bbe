package views

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/rivo/tview"

	"github.com/matheus3301/huddle/internal/tui/ui"
)

// SignInView is shown while no user is signed in. It renders the authorize
// URL as a QR code for the consent screen.
type SignInView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewSignInView creates a new sign-in view.
func NewSignInView(theme *ui.Theme) *SignInView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Sign in ")
	tv.SetTitleColor(theme.TitleColor)

	return &SignInView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (sv *SignInView) Name() string { return "Sign in" }

// Update renders the sign-in screen. pending shows the progress line in
// place of the prompt; lastErr, when set, is shown under it.
func (sv *SignInView) Update(authURL string, pending bool, lastErr string) {
	sv.Clear()

	dim := ui.Tag(sv.theme.DimColor)
	_, _ = fmt.Fprintf(sv, "\n%s\n\n", ui.Banner(sv.theme))
	_, _ = fmt.Fprint(sv, "Welcome to Huddle\n")
	_, _ = fmt.Fprintf(sv, "[%s]Sign in to start messaging with your contacts[-]\n\n", dim)
	_, _ = fmt.Fprint(sv, renderQR(authURL))
	_, _ = fmt.Fprintf(sv, "\n[%s]%s[-]\n\n", dim, tview.Escape(authURL))

	if pending {
		_, _ = fmt.Fprint(sv, "[::b]Signing in...[-:-:-]\n")
	} else {
		_, _ = fmt.Fprintf(sv, "Press [%s::b]Enter[-:-:-] to continue with Google\n", ui.Tag(sv.theme.MenuKeyColor))
	}
	if lastErr != "" {
		_, _ = fmt.Fprintf(sv, "\n[%s]%s[-]\n", ui.Tag(sv.theme.FlashErrColor), tview.Escape(lastErr))
	}
}

// renderQR converts a string to a compact QR code using Unicode half-block
// characters, two modules per cell.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "(QR generation failed: " + err.Error() + ")\n"
	}

	bitmap := qr.Bitmap()
	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bot := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
