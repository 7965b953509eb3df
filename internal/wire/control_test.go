package wire

import (
	"testing"

	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/model"
)

func TestRequestRoundTrip(t *testing.T) {
	for _, req := range []Request{
		{Kind: ReqKill, Name: "web"},
		{Kind: ReqList},
		{Kind: ReqTearDown},
	} {
		b := EncodeRequest(req)
		got, err := DecodeRequest(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != req {
			t.Errorf("got %+v want %+v", got, req)
		}
	}
}

func TestResponseRoundTripList(t *testing.T) {
	resp := Response{
		Kind: RespList,
		List: []model.ListEntry{
			{Name: "a", Status: model.Running(123), CPUPercent: 1.5, MemoryBytes: 2048, Restarts: 3, RuntimeSeconds: 9.5},
			{Name: "b", Status: model.Exited(1)},
		},
	}
	b := EncodeResponse(resp)
	got, err := DecodeResponse(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.List) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.List))
	}
	if got.List[0].Name != "a" || got.List[0].Status.PID != 123 || got.List[0].CPUPercent != 1.5 {
		t.Errorf("entry 0 mismatch: %+v", got.List[0])
	}
	if got.List[1].Status.ExitCode != 1 {
		t.Errorf("entry 1 mismatch: %+v", got.List[1])
	}
}

func TestResponseRoundTripError(t *testing.T) {
	resp := Response{Kind: RespError, Err: cerr.ProcessNotFound("web")}
	b := EncodeResponse(resp)
	got, err := DecodeResponse(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Err == nil || got.Err.Kind != cerr.KindProcessNotFound || got.Err.Detail != "web" {
		t.Errorf("error not preserved: %+v", got.Err)
	}
}

func TestResponseRoundTripVersion(t *testing.T) {
	resp := Response{Kind: RespVersion, Version: "1.2.3"}
	b := EncodeResponse(resp)
	got, err := DecodeResponse(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != "1.2.3" {
		t.Errorf("version mismatch: %q", got.Version)
	}
}
