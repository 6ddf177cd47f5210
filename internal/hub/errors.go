package hub

import (
	"errors"
	"fmt"

	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
)

// Error codes carried in outbound error events
const (
	CodeInvalidPayload    = "invalid_payload"
	CodeNotParticipant    = "not_participant"
	CodePersistenceFailed = "persistence_failed"
	CodeNotJoined         = "not_joined"
	CodeUnknownEvent      = "unknown_event"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal_error"
)

// DeliveryError is returned by the fanout engine. The connection stays open.
type DeliveryError struct {
	Code string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ReceiptError is returned by the receipt tracker
type ReceiptError struct {
	Code string
	Err  error
}

func (e *ReceiptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ReceiptError) Unwrap() error { return e.Err }

var (
	errNotParticipant = errors.New("user is not a participant of this conversation")
	errNotJoined      = errors.New("connection has not joined this conversation")
	errInvalidStatus  = errors.New("status must be online, away or busy")
)

// errorCode maps an engine error to the code the client sees
func errorCode(err error) string {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Code
	}
	var re *ReceiptError
	if errors.As(err, &re) {
		return re.Code
	}
	if errors.Is(err, event.ErrInvalidPayload) {
		return CodeInvalidPayload
	}
	return CodeInternal
}

func errorEvent(code, message string) event.WsEvent {
	return event.New(event.Error, model.ErrorPayload{Code: code, Message: message})
}

// sendError reports err to a single connection as an error event
func sendError(c Conn, err error) {
	code := errorCode(err)
	message := err.Error()
	if code == CodeInternal || code == CodePersistenceFailed {
		// storage details stay in the logs
		message = "could not complete the request"
	}
	c.Send(errorEvent(code, message))
}
