package config

const (
	// MaxCodeLength bounds a single code_update payload, in characters.
	MaxCodeLength = 1_000_000

	// MaxCursorPosition bounds a reported cursor offset.
	MaxCursorPosition = 1_000_000

	// MaxLanguageLength bounds a language tag such as "javascript".
	MaxLanguageLength = 50

	// MaxNicknameLength bounds a display nickname.
	MaxNicknameLength = 50

	// MaxRoomIDLength bounds a room identifier. Document IDs are UUIDs, so
	// anything much longer is garbage.
	MaxRoomIDLength = 64

	// DefaultLanguage is used for documents created without a language.
	DefaultLanguage = "javascript"
)
