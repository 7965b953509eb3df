package wire

import (
	"fmt"

	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/model"
)

// RequestKind tags a control-protocol request.
type RequestKind uint8

const (
	ReqKill RequestKind = iota
	ReqRestart
	ReqList
	ReqKillAll
	ReqTearDown
	ReqStatus
	ReqKillDaemon
)

// Request is one control-protocol datagram sent by the client.
type Request struct {
	Kind RequestKind
	Name string // valid for ReqKill, ReqRestart
}

func EncodeRequest(req Request) []byte {
	w := NewWriter()
	w.PutUint8(uint8(req.Kind))
	w.PutString(req.Name)
	return w.Bytes()
}

func DecodeRequest(b []byte) (Request, error) {
	r := NewReader(b)
	kind, err := r.GetUint8()
	if err != nil {
		return Request{}, fmt.Errorf("decode request kind: %w", err)
	}
	name, err := r.GetString()
	if err != nil {
		return Request{}, fmt.Errorf("decode request name: %w", err)
	}
	return Request{Kind: RequestKind(kind), Name: name}, nil
}

// ResponseKind tags a control-protocol response.
type ResponseKind uint8

const (
	RespOk ResponseKind = iota
	RespError
	RespList
	RespVersion
)

// Response is one control-protocol datagram sent by the supervisor.
type Response struct {
	Kind    ResponseKind
	Err     *cerr.Error         // valid for RespError
	List    []model.ListEntry   // valid for RespList
	Version string              // valid for RespVersion
}

func EncodeResponse(resp Response) []byte {
	w := NewWriter()
	w.PutUint8(uint8(resp.Kind))
	switch resp.Kind {
	case RespError:
		if resp.Err != nil {
			w.PutUint8(uint8(resp.Err.Kind))
			w.PutString(resp.Err.Detail)
		} else {
			w.PutUint8(uint8(cerr.KindInternalError))
			w.PutString("")
		}
	case RespList:
		w.PutUint32(uint32(len(resp.List)))
		for _, e := range resp.List {
			w.PutString(e.Name)
			w.PutUint8(uint8(e.Status.Kind))
			w.PutUint32(uint32(e.Status.PID))
			w.PutInt64(int64(e.Status.ExitCode))
			w.PutFloat64(e.CPUPercent)
			w.PutUint64(e.MemoryBytes)
			w.PutUint64(e.DiskReadBytes)
			w.PutUint64(e.DiskWriteBytes)
			w.PutUint32(e.Restarts)
			w.PutFloat64(e.RuntimeSeconds)
		}
	case RespVersion:
		w.PutString(resp.Version)
	}
	return w.Bytes()
}

func DecodeResponse(b []byte) (Response, error) {
	r := NewReader(b)
	kind, err := r.GetUint8()
	if err != nil {
		return Response{}, fmt.Errorf("decode response kind: %w", err)
	}
	resp := Response{Kind: ResponseKind(kind)}
	switch resp.Kind {
	case RespError:
		ek, err := r.GetUint8()
		if err != nil {
			return Response{}, fmt.Errorf("decode error kind: %w", err)
		}
		detail, err := r.GetString()
		if err != nil {
			return Response{}, fmt.Errorf("decode error detail: %w", err)
		}
		resp.Err = cerr.New(cerr.Kind(ek), detail)
	case RespList:
		n, err := r.GetUint32()
		if err != nil {
			return Response{}, fmt.Errorf("decode list count: %w", err)
		}
		resp.List = make([]model.ListEntry, 0, n)
		for i := uint32(0); i < n; i++ {
			var e model.ListEntry
			if e.Name, err = r.GetString(); err != nil {
				return Response{}, err
			}
			sk, err := r.GetUint8()
			if err != nil {
				return Response{}, err
			}
			pid, err := r.GetUint32()
			if err != nil {
				return Response{}, err
			}
			code, err := r.GetInt64()
			if err != nil {
				return Response{}, err
			}
			e.Status = model.Status{Kind: model.StatusKind(sk), PID: int(pid), ExitCode: int(code)}
			if e.CPUPercent, err = r.GetFloat64(); err != nil {
				return Response{}, err
			}
			if e.MemoryBytes, err = r.GetUint64(); err != nil {
				return Response{}, err
			}
			if e.DiskReadBytes, err = r.GetUint64(); err != nil {
				return Response{}, err
			}
			if e.DiskWriteBytes, err = r.GetUint64(); err != nil {
				return Response{}, err
			}
			if e.Restarts, err = r.GetUint32(); err != nil {
				return Response{}, err
			}
			if e.RuntimeSeconds, err = r.GetFloat64(); err != nil {
				return Response{}, err
			}
			resp.List = append(resp.List, e)
		}
	case RespVersion:
		if resp.Version, err = r.GetString(); err != nil {
			return Response{}, fmt.Errorf("decode version: %w", err)
		}
	}
	return resp, nil
}
