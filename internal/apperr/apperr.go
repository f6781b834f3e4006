package apperr

import (
	"errors"
	"fmt"
)

// Kind mengelompokkan kegagalan agar pemanggil bisa memilih pesan dan
// perilaku rollback.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport: timeout, DNS, abort. Tidak ada respons sama sekali.
	KindTransport
	// KindProtocol: respons diterima tapi bukan envelope yang valid.
	KindProtocol
	// KindApplication: envelope valid dengan success:false.
	KindApplication
	// KindPermission dihitung lokal dan tidak pernah dikirim ke server.
	KindPermission
	KindNotFound
	KindValidation
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindApplication:
		return "application"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindUpload:
		return "upload"
	default:
		return "unknown"
	}
}

const (
	NetworkMessage     = "Network error or timeout"
	RequestFailed      = "Request failed"
	PermissionDenied   = "Permission denied"
	TaskNotFound       = "Task not found"
	UploadFailed       = "Failed to upload"
	NotAuthenticated   = "Not authenticated"
	InvalidCredentials = "Invalid credentials"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Transport menormalkan kegagalan jaringan ke pesan generik.
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: NetworkMessage, Err: err}
}

// Protocol menormalkan respons yang tidak bisa diparse ke pesan generik.
func Protocol(op string, err error) *Error {
	return &Error{Kind: KindProtocol, Op: op, Message: NetworkMessage, Err: err}
}

// Application membawa pesan server bila ada, selain itu pesan fallback.
func Application(op, message string) *Error {
	if message == "" {
		message = RequestFailed
	}
	return &Error{Kind: KindApplication, Op: op, Message: message}
}

func Permission(op string, err error) *Error {
	return &Error{Kind: KindPermission, Op: op, Message: PermissionDenied, Err: err}
}

// Unauthenticated dipakai saat operasi butuh sesi tapi belum login.
func Unauthenticated(op string) *Error {
	return &Error{Kind: KindPermission, Op: op, Message: NotAuthenticated}
}

func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

func Validation(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: "Validation error", Err: err}
}

func Upload(op string, err error) *Error {
	msg := UploadFailed
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindApplication {
		msg = ae.Message
	}
	return &Error{Kind: KindUpload, Op: op, Message: msg, Err: err}
}

// KindOf mengembalikan Kind dari error pertama di rantai yang bertipe *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Message mengembalikan pesan untuk ditampilkan ke user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// Remote melaporkan apakah kegagalan berasal dari store remote
// (transport, protocol atau application) sehingga rollback berlaku.
func Remote(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindProtocol, KindApplication:
		return true
	default:
		return false
	}
}
