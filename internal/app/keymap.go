package app

// Key binding constants used in the page key handlers.
const (
	KeyQuit      = "q"
	KeyCtrlC     = "ctrl+c"
	KeyTab       = "tab"
	KeyShiftTab  = "shift+tab"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyJ         = "j"
	KeyK         = "k"
	KeyEnter     = "enter"
	KeyEsc       = "esc"
	KeySpace     = " "
	KeyPass      = "y"
	KeyFail      = "n"
	KeyNew       = "n"
	KeyLogout    = "l"
	KeyVerify    = "v"
	KeyRequest   = "r"
	KeySaveDraft = "s"
	KeySubmit    = "x"
)
