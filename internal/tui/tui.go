package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/hnrobert/ldmgr/internal/secure"
	"github.com/hnrobert/ldmgr/internal/session"
)

var (
	ErrScreenTooSmall = errors.New("terminal too small")
	ErrNotInitialized = errors.New("tui not initialized")
	ErrReadInput      = errors.New("failed to read input")
)

// SelectCancelled is the sentinel a cancelled session selection returns.
const SelectCancelled = -1

const (
	errorBannerDelay   = 2 * time.Second
	messageBannerDelay = 1500 * time.Millisecond
	fieldWidth         = 20
)

// TUI renders the login flow on the controlling terminal. One instance per
// run, owned by the controller.
type TUI struct {
	screen tcell.Screen

	styleNormal    tcell.Style
	styleError     tcell.Style
	styleHighlight tcell.Style
	styleMessage   tcell.Style

	// nap is swapped out in tests so banners do not actually sleep.
	nap func(time.Duration)
}

func New() *TUI {
	return &TUI{nap: time.Sleep}
}

func (t *TUI) Init() error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	s.HideCursor()
	t.screen = s
	t.styleNormal = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	t.styleError = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorBlack)
	t.styleHighlight = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	t.styleMessage = tcell.StyleDefault.Foreground(tcell.ColorGreen).Background(tcell.ColorBlack)
	return nil
}

func (t *TUI) Close() {
	if t.screen != nil {
		t.screen.Fini()
		t.screen = nil
	}
}

func (t *TUI) draw(x, y int, style tcell.Style, text string) {
	for i, r := range text {
		t.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (t *TUI) drawCentered(y int, style tcell.Style, text string) {
	w, _ := t.screen.Size()
	x := (w - len(text)) / 2
	if x < 0 {
		x = 0
	}
	t.draw(x, y, style, text)
}

// DrawLoginScreen clears the screen and renders the welcome banner.
func (t *TUI) DrawLoginScreen(hostname, version string) {
	if t.screen == nil {
		return
	}
	w, h := t.screen.Size()
	t.screen.Clear()
	if h < 10 || w < 40 {
		t.draw(0, 0, t.styleNormal, "Terminal too small")
		t.screen.Show()
		return
	}
	if hostname == "" {
		hostname = "localhost"
	}
	row := h / 4
	t.drawCentered(row, t.styleNormal, "Welcome to ldmgr")
	t.drawCentered(row+2, t.styleNormal, fmt.Sprintf("hostname: %s", hostname))
	t.drawCentered(row+3, t.styleNormal, fmt.Sprintf("version: %s", version))
	t.screen.Show()
}

// ReadCredentials collects a username and masked password into the bounded
// buffers. Tab and the arrow keys move between fields, Escape clears the
// focused field, Enter submits once the username is non-empty.
func (t *TUI) ReadCredentials(username, password *secure.Buffer) error {
	if t.screen == nil {
		return ErrNotInitialized
	}
	w, h := t.screen.Size()
	if h < 10 || w < 50 {
		return ErrScreenTooSmall
	}

	username.Wipe()
	password.Wipe()

	const (
		fieldUsername = 0
		fieldPassword = 1
	)
	field := fieldUsername
	fieldRow := h / 2
	labelCol := max(w/2-20, 0)
	inputCol := max(w/2-5, 10)

	for {
		t.draw(labelCol, fieldRow, t.styleNormal, "Username:")
		t.draw(inputCol, fieldRow, t.styleNormal, fmt.Sprintf("[%-*s]", fieldWidth, tailOf(username.String())))
		t.draw(labelCol, fieldRow+2, t.styleNormal, "Password:")
		t.draw(inputCol, fieldRow+2, t.styleNormal, fmt.Sprintf("[%-*s]", fieldWidth, masked(password.Len())))
		t.drawCentered(fieldRow+4, t.styleNormal, "[Press Enter to login]")

		if field == fieldUsername {
			t.screen.ShowCursor(inputCol+1+min(username.Len(), fieldWidth), fieldRow)
		} else {
			t.screen.ShowCursor(inputCol+1+min(password.Len(), fieldWidth), fieldRow+2)
		}
		t.screen.Show()

		ev := t.screen.PollEvent()
		if ev == nil {
			return ErrReadInput
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			t.screen.Sync()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEnter:
				if !username.Empty() {
					t.screen.HideCursor()
					return nil
				}
			case tcell.KeyTab, tcell.KeyDown, tcell.KeyUp, tcell.KeyBacktab:
				if field == fieldUsername {
					field = fieldPassword
				} else {
					field = fieldUsername
				}
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				if field == fieldUsername {
					username.DeleteLast()
				} else {
					password.DeleteLast()
				}
			case tcell.KeyEscape:
				if field == fieldUsername {
					username.Wipe()
				} else {
					password.Wipe()
				}
			case tcell.KeyRune:
				r := ev.Rune()
				if r >= 32 && r <= 126 {
					if field == fieldUsername {
						username.Append(byte(r))
					} else {
						password.Append(byte(r))
					}
				}
			}
		}
	}
}

// SelectSession renders the catalog as a menu and returns the chosen index,
// or SelectCancelled when the user backs out.
func (t *TUI) SelectSession(sessions []session.Descriptor, defaultIdx int) int {
	if t.screen == nil || len(sessions) == 0 {
		return SelectCancelled
	}
	w, h := t.screen.Size()
	if h < 10 || w < 60 {
		return SelectCancelled
	}

	selected := 0
	if defaultIdx >= 0 && defaultIdx < len(sessions) {
		selected = defaultIdx
	}
	startRow := h / 3
	if startRow+len(sessions)+4 > h {
		startRow = 2
	}

	for {
		t.screen.Clear()
		t.drawCentered(startRow-2, t.styleNormal, "Select Session")

		for i, s := range sessions {
			row := startRow + i
			if row >= h-3 {
				break
			}
			col := max(w/2-20, 0)
			label := fmt.Sprintf("  %-38s", s.Name)
			style := t.styleNormal
			if i == selected {
				label = fmt.Sprintf("> %-38s", s.Name)
				style = t.styleHighlight
			}
			t.draw(col, row, style, label)
			tag := "[X11]"
			if s.Kind == session.Wayland {
				tag = "[Wayland]"
			}
			if typeCol := w/2 + 20; typeCol < w-10 {
				t.draw(typeCol, row, t.styleNormal, tag)
			}
		}

		if instrRow := startRow + len(sessions) + 2; instrRow < h {
			t.drawCentered(instrRow, t.styleNormal, "Use arrow keys to navigate, Enter to select")
		}
		t.screen.Show()

		ev := t.screen.PollEvent()
		if ev == nil {
			return SelectCancelled
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			t.screen.Sync()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEnter:
				return selected
			case tcell.KeyUp:
				if selected > 0 {
					selected--
				}
			case tcell.KeyDown:
				if selected < len(sessions)-1 {
					selected++
				}
			case tcell.KeyEscape:
				return SelectCancelled
			}
		}
	}
}

// ShowError renders a transient red banner on the bottom line. It
// auto-dismisses after a fixed delay and does not block further operations
// once dismissed.
func (t *TUI) ShowError(message string) {
	t.banner(message, t.styleError, errorBannerDelay)
}

// ShowMessage is ShowError's calmer sibling for informational feedback.
func (t *TUI) ShowMessage(message string) {
	t.banner(message, t.styleMessage, messageBannerDelay)
}

func (t *TUI) banner(message string, style tcell.Style, delay time.Duration) {
	if t.screen == nil || message == "" {
		return
	}
	w, h := t.screen.Size()
	if h < 3 || w < 10 {
		return
	}
	row := h - 3
	for x := 0; x < w; x++ {
		t.screen.SetContent(x, row, ' ', nil, t.styleNormal)
	}
	if len(message) > w {
		message = message[:max(w-3, 0)] + "..."
		t.draw(0, row, style, message)
	} else {
		t.drawCentered(row, style, message)
	}
	t.screen.Show()
	t.nap(delay)
}

func tailOf(s string) string {
	if len(s) > fieldWidth {
		return s[len(s)-fieldWidth:]
	}
	return s
}

func masked(n int) string {
	if n > fieldWidth {
		n = fieldWidth
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = '*'
	}
	return string(out)
}
