package engine

// SegMode selects how the backend segments the buffer into glyphs.
type SegMode int

// Segmentation modes, from coarse to fine.
const (
	SegSingleLine SegMode = iota
	SegSingleWord
	SegSingleChar
)

func (m SegMode) String() string {
	switch m {
	case SegSingleLine:
		return "single-line"
	case SegSingleWord:
		return "single-word"
	case SegSingleChar:
		return "single-char"
	default:
		return "unknown"
	}
}

// Mode selects the recognition model variant.
type Mode int

// Engine modes.
const (
	ModeLSTM Mode = iota
	ModeLegacy
	ModeCombined
)

func (m Mode) String() string {
	switch m {
	case ModeLSTM:
		return "lstm"
	case ModeLegacy:
		return "legacy"
	case ModeCombined:
		return "combined"
	default:
		return "unknown"
	}
}

// DigitWhitelist restricts recognition to numeric display glyphs.
const DigitWhitelist = "0123456789."

// Params is a named parameter set for one recognition attempt.
type Params struct {
	Name      string
	Whitelist string
	SegMode   SegMode
	Mode      Mode
}

// DefaultParams returns the standard configuration set: three variants
// covering line/word/glyph segmentation paired with the fast LSTM
// model, the legacy template model, and both combined.
func DefaultParams() []Params {
	return []Params{
		{Name: "digits-lstm", Whitelist: DigitWhitelist, SegMode: SegSingleLine, Mode: ModeLSTM},
		{Name: "digits-legacy", Whitelist: DigitWhitelist, SegMode: SegSingleWord, Mode: ModeLegacy},
		{Name: "digits-combined", Whitelist: DigitWhitelist, SegMode: SegSingleChar, Mode: ModeCombined},
	}
}
