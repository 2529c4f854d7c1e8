package app

import "errors"

var (
	// ErrNoResolvedSeries: aucune série de la timetable n'a pu être résolue, le run s'arrête.
	ErrNoResolvedSeries = errors.New("no schedule entry could be resolved")
	// ErrScheduleTokenMissing: ANIMESCHEDULE_TOKEN absent.
	ErrScheduleTokenMissing = errors.New("animeschedule token not configured")
)

// CodedError porte un code d'erreur stable pour les erreurs de transport
// (fetch de la timetable, AniList).
//
// Codes: network_error, http_status, decode_error, empty_schedule.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

// ErrorCode renvoie le code d'un CodedError enveloppé, ou "" sinon.
func ErrorCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
