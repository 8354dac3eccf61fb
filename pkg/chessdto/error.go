package chessdto

// Error codes carried by DomainError.
const (
	CodeUnrecognizedPhrase = "unrecognized_phrase"
	CodeIllegalMove        = "illegal_move"
	CodeNoSpeech           = "no_speech"
	CodeNoActiveGame       = "no_active_game"
	CodeUndoUnavailable    = "undo_unavailable"
	CodeNoSavedGame        = "no_saved_game"
	CodeGameNotFound       = "game_not_found"
	CodeInvalidOption      = "invalid_option"
	CodeEngineUnavailable  = "engine_unavailable"
	CodeNotYourTurn        = "not_your_turn"
	CodeRecognitionActive  = "recognition_active"
	CodeSpeechUnavailable  = "speech_unavailable"
	CodeGeneric            = "generic"
)

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
	// Detail is the part of the underlying error after the sentinel text.
	Detail string
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "blindfold chess error"
}
