package utils

// KuttalkError marks failures originating in this client rather than in the
// transport or the standard library.
type KuttalkError struct {
	Msg string
}

func (e *KuttalkError) Error() string { return e.Msg }

func NewKuttalkError(msg string) error { return &KuttalkError{Msg: msg} }
