package layout

import "oskim/internal/keysym"

const (
	iconShift     = "keyboard-shift-symbolic"
	iconBackspace = "edit-clear-symbolic"
	iconEnter     = "keyboard-enter-symbolic"
	iconEmoji     = "face-smile-symbolic"
	iconLayout    = "keyboard-layout-symbolic"
	iconHide      = "go-down-symbolic"

	classShiftLower = "shift-key-lowercase"
	classShiftUpper = "shift-key-uppercase"
)

// paddingRows is the number of padding rows declared per level. The first
// two align with the top keymap rows, the last two with the bottom ones.
const paddingRows = 4

var (
	tabKey    = KeyDescriptor{Label: "tab", Width: 1, Keysym: keysym.Tab}
	toggleKey = KeyDescriptor{Label: "あ/Ａ", Width: 1.5, Keysym: keysym.CapsLock}
	escKey    = KeyDescriptor{Label: "esc", Width: 1, Keysym: keysym.Escape}
	backspace = KeyDescriptor{Width: 2, Keysym: keysym.BackSpace, Icon: iconBackspace}
	enterKey  = KeyDescriptor{Width: 2, Keysym: keysym.Return, StyleClass: "enter-key", Icon: iconEnter}
	henkanKey = KeyDescriptor{Label: "変換", Width: 2.5, Keysym: keysym.Hangul}
)

func space(width float64) KeyDescriptor {
	return KeyDescriptor{Keysym: keysym.Space, Width: width}
}

func shift(width float64, target *Level, class string) KeyDescriptor {
	return KeyDescriptor{Width: width, Level: target, StyleClass: class, Icon: iconShift}
}

func switchKey(label string, target Level) KeyDescriptor {
	return KeyDescriptor{Label: label, Width: 1.5, Level: lv(target)}
}

func actionRow(lead ...KeyDescriptor) []KeyDescriptor {
	return append(lead,
		KeyDescriptor{Action: ActionEmoji, Icon: iconEmoji},
		KeyDescriptor{Action: ActionLanguageMenu, StyleClass: "layout-key", Icon: iconLayout},
		KeyDescriptor{Action: ActionHide, StyleClass: "hide-key", Icon: iconHide},
	)
}

var defaultKeysPre = [NumLevels][paddingRows][]KeyDescriptor{
	{
		{tabKey},
		{toggleKey},
		{shift(2, lv(1), classShiftLower)},
		{switchKey("?123", 2), escKey, space(7.5)},
	}, {
		{tabKey},
		{toggleKey},
		{shift(2, lv(0), classShiftUpper)},
		{switchKey("?123", 2), escKey, space(7.5)},
	}, {
		{},
		{toggleKey},
		{},
		{switchKey("ABC", 0), escKey, space(7.5)},
	}, {
		{},
		{toggleKey},
		{shift(2, nil, classShiftLower)},
		{switchKey("ABC", 4), escKey, space(7.5)},
	}, {
		{tabKey},
		{toggleKey},
		{shift(2, lv(5), classShiftLower)},
		{switchKey("?123", 3), escKey, space(5)},
	}, {
		{tabKey},
		{toggleKey},
		{shift(2, lv(4), classShiftUpper)},
		{switchKey("?123", 3), escKey, space(5)},
	},
}

var defaultKeysPost = [NumLevels][paddingRows][]KeyDescriptor{
	{
		{backspace},
		{enterKey},
		{shift(1, lv(1), classShiftLower)},
		actionRow(),
	}, {
		{backspace},
		{enterKey},
		{shift(1, lv(0), classShiftUpper)},
		actionRow(),
	}, {
		{backspace},
		{enterKey},
		{},
		actionRow(),
	}, {
		{backspace},
		{enterKey},
		{},
		actionRow(),
	}, {
		{backspace},
		{enterKey},
		{{Label: "ｶﾀｶﾅ", Keysym: keysym.ShiftR}},
		actionRow(henkanKey),
	}, {
		{backspace},
		{enterKey},
		{shift(1, lv(4), classShiftUpper)},
		actionRow(henkanKey),
	},
}
