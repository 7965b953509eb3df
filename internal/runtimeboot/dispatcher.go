package runtimeboot

import (
	"os"

	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/procmetrics"
	"github.com/capsulenv/capsulenv/internal/wire"
)

// Version is the supervisor binary's own version string. A Status
// request is answered with the capsule's version, not this one.
const Version = "1.0.0"

// Dispatcher answers control-protocol requests against a Boot's
// process table. It implements controlproto.Handler.
type Dispatcher struct {
	Boot    *Boot
	Metrics *procmetrics.Cache

	// shutdownPending records that a KillDaemon/TearDown reply has been
	// handed back to Handle's caller but not yet acted on. The command
	// loop must finish sending that reply (PollOnce's WriteToUDP) before
	// calling Boot.Shutdown — closing the socket inside Handle itself
	// would race the write and drop the response.
	shutdownPending    bool
	shutdownRemoveRoot bool
}

// NewDispatcher builds a Dispatcher for b.
func NewDispatcher(b *Boot, metrics *procmetrics.Cache) *Dispatcher {
	return &Dispatcher{Boot: b, Metrics: metrics}
}

// PendingShutdown reports whether the last Handle call answered a
// KillDaemon or TearDown request. The caller must check this only
// after the reply has actually been written to the client.
func (d *Dispatcher) PendingShutdown() (pending, removeRoot bool) {
	return d.shutdownPending, d.shutdownRemoveRoot
}

func (d *Dispatcher) Handle(req wire.Request) wire.Response {
	switch req.Kind {
	case wire.ReqKill:
		if err := d.Boot.Table.Kill(req.Name); err != nil {
			return errorResponse(err)
		}
		return wire.Response{Kind: wire.RespOk}

	case wire.ReqRestart:
		if err := d.Boot.Table.Restart(req.Name, d.Boot.ExtractRoot); err != nil {
			return errorResponse(err)
		}
		return wire.Response{Kind: wire.RespOk}

	case wire.ReqList:
		return wire.Response{Kind: wire.RespList, List: d.Boot.Table.List(d.Metrics)}

	case wire.ReqKillAll:
		d.Boot.Table.KillAll()
		return wire.Response{Kind: wire.RespOk}

	case wire.ReqTearDown:
		d.Boot.Table.KillAll()
		d.shutdownPending = true
		d.shutdownRemoveRoot = true
		return wire.Response{Kind: wire.RespOk}

	case wire.ReqStatus:
		return wire.Response{Kind: wire.RespVersion, Version: d.Boot.Capsule.Version.String()}

	case wire.ReqKillDaemon:
		d.shutdownPending = true
		d.shutdownRemoveRoot = false
		return wire.Response{Kind: wire.RespOk}

	default:
		return errorResponse(cerr.InternalError("unknown request kind"))
	}
}

func errorResponse(err error) wire.Response {
	if ce, ok := err.(*cerr.Error); ok {
		return wire.Response{Kind: wire.RespError, Err: ce}
	}
	return wire.Response{Kind: wire.RespError, Err: cerr.InternalError(err.Error())}
}

// Shutdown stops the server and, when removeRoot is set (TearDown),
// removes the extraction root entirely.
func (b *Boot) Shutdown(removeRoot bool) {
	b.Server.Close()
	if removeRoot {
		os.RemoveAll(b.ExtractRoot)
	}
}
