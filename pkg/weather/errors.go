package weather

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

type Kind int

const (
	EmptyInput Kind = iota + 1
	NetworkError
	NotFound
	AuthError
	GenericAPIError
	MalformedResponse
	UnknownError
)

var kindNames = map[Kind]string{
	EmptyInput:        "EmptyInput",
	NetworkError:      "NetworkError",
	NotFound:          "NotFound",
	AuthError:         "AuthError",
	GenericAPIError:   "GenericApiError",
	MalformedResponse: "MalformedResponse",
	UnknownError:      "UnknownError",
}

// Display messages shown to the user, one per kind. NetworkError normally
// carries the transport's own message instead.
var messages = map[Kind]string{
	EmptyInput:        "Por favor ingresa el nombre de una ciudad",
	NetworkError:      "Error desconocido al obtener el clima",
	NotFound:          "Ciudad no encontrada. Por favor verifica el nombre e intenta nuevamente.",
	AuthError:         "Error de autenticación con la API. Verifica tu API key.",
	GenericAPIError:   "Error al obtener los datos del clima. Por favor intenta nuevamente.",
	MalformedResponse: "La respuesta del servicio del clima no tiene el formato esperado.",
	UnknownError:      "Error desconocido al obtener el clima",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Message returns the fixed display message for k.
func (k Kind) Message() string {
	return messages[k]
}

// Failure is a classified lookup error. Message is display-ready.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

// NewFailure builds a Failure of kind k with its fixed message. err is kept
// for logging only and never shown.
func NewFailure(k Kind, err error) *Failure {
	return &Failure{Kind: k, Message: k.Message(), Err: err}
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf reports the failure kind carried by err, or 0 if err is not a
// *Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}

// Classify turns any error into a *Failure. A *Failure anywhere in the chain
// is returned unchanged; everything else is a transport failure whose
// message is the innermost transport error text, without the request URL.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		err = uerr.Err
	}

	msg := err.Error()
	if msg == "" {
		msg = messages[NetworkError]
	}
	return &Failure{Kind: NetworkError, Message: msg, Err: err}
}

// StatusFailure maps a provider HTTP status to a failure, or nil when the
// status is in the 2xx range.
func StatusFailure(code int) *Failure {
	if code >= 200 && code < 300 {
		return nil
	}

	err := fmt.Errorf("unexpected status %d", code)
	switch code {
	case http.StatusNotFound:
		return NewFailure(NotFound, err)
	case http.StatusUnauthorized:
		return NewFailure(AuthError, err)
	default:
		return NewFailure(GenericAPIError, err)
	}
}
