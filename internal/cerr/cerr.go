// Package cerr is the flat error taxonomy shared by the packager, the
// supervisor, and the client. Every member is an *Error carrying a Kind,
// so a caller can errors.As into *Error and check its Kind, and so the
// control protocol can encode a kind on the wire instead of a free-form
// string.
package cerr

import "fmt"

// Kind identifies one of the taxonomy members for wire encoding.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindProcessNotFound
	KindSupervisorCantBeFound
	KindCouldNotStartUDPServer
	KindNoData
	KindInvalidPassword
	KindInvalidDataFormat
	KindCouldNotFindFile
	KindCouldNotReadFile
	KindCouldNotCreatePath
	KindCouldNotWriteFile
	KindCouldNotKillProcess
	KindFailedToSpawnProcess
	KindCouldNotEncryptFile
	KindUnsupportedTarget
	KindInternalError
)

// Error is a taxonomy member. Kind is stable across processes (it's what
// crosses the wire); Detail is the name/path/etc. that parameterizes it.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindProcessNotFound:
		return fmt.Sprintf("process not found: %s", e.Detail)
	case KindSupervisorCantBeFound:
		return "supervisor cant be found"
	case KindCouldNotStartUDPServer:
		return "could not start udp server"
	case KindNoData:
		return "no data"
	case KindInvalidPassword:
		return "invalid password"
	case KindInvalidDataFormat:
		return "invalid data format"
	case KindCouldNotFindFile:
		return fmt.Sprintf("could not find file: %s", e.Detail)
	case KindCouldNotReadFile:
		return fmt.Sprintf("could not read file: %s", e.Detail)
	case KindCouldNotCreatePath:
		return fmt.Sprintf("could not create path: %s", e.Detail)
	case KindCouldNotWriteFile:
		return fmt.Sprintf("could not write file: %s", e.Detail)
	case KindCouldNotKillProcess:
		return fmt.Sprintf("could not kill process: %s", e.Detail)
	case KindFailedToSpawnProcess:
		return fmt.Sprintf("failed to spawn process: %s", e.Detail)
	case KindCouldNotEncryptFile:
		return "could not encrypt file"
	case KindUnsupportedTarget:
		return fmt.Sprintf("unsupported target: %s", e.Detail)
	case KindInternalError:
		if e.Detail != "" {
			return fmt.Sprintf("internal error: %s", e.Detail)
		}
		return "internal error"
	default:
		return "unknown error"
	}
}

func New(kind Kind, detail string) *Error { return &Error{Kind: kind, Detail: detail} }

func ProcessNotFound(name string) *Error       { return New(KindProcessNotFound, name) }
func SupervisorCantBeFound() *Error            { return New(KindSupervisorCantBeFound, "") }
func CouldNotStartUDPServer(d string) *Error   { return New(KindCouldNotStartUDPServer, d) }
func NoData() *Error                           { return New(KindNoData, "") }
func InvalidPassword() *Error                  { return New(KindInvalidPassword, "") }
func InvalidDataFormat() *Error                { return New(KindInvalidDataFormat, "") }
func CouldNotFindFile(path string) *Error      { return New(KindCouldNotFindFile, path) }
func CouldNotReadFile(path string) *Error      { return New(KindCouldNotReadFile, path) }
func CouldNotCreatePath(path string) *Error    { return New(KindCouldNotCreatePath, path) }
func CouldNotWriteFile(path string) *Error     { return New(KindCouldNotWriteFile, path) }
func CouldNotKillProcess(name string) *Error   { return New(KindCouldNotKillProcess, name) }
func FailedToSpawnProcess(name string) *Error  { return New(KindFailedToSpawnProcess, name) }
func CouldNotEncryptFile() *Error              { return New(KindCouldNotEncryptFile, "") }
func UnsupportedTarget(triple string) *Error   { return New(KindUnsupportedTarget, triple) }
func InternalError(detail string) *Error       { return New(KindInternalError, detail) }
