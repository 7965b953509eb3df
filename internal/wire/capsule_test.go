package wire

import (
	"testing"
	"time"

	"github.com/capsulenv/capsulenv/internal/model"
)

func TestCapsuleRoundTrip(t *testing.T) {
	c := &model.Capsule{
		Version: model.Version{Major: 1, Minor: 2, Patch: 3},
		Env:     map[string]string{"FOO": "bar"},
		Files:   map[string]string{"id-1": "greeting.txt"},
		Processes: map[string]*model.Process{
			"a": {
				Cmd:           "/bin/true",
				Args:          []string{"-x", "1"},
				Cwd:           "",
				Env:           map[string]string{"A": "1"},
				RestartPolicy: model.RestartOnFailure,
				RestartDelay:  250 * time.Millisecond,
				Files:         map[string]string{"id-2": "data.bin"},
			},
		},
		FS: []byte{1, 2, 3, 4},
	}

	b := EncodeCapsule(c)
	got, err := DecodeCapsule(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Version != c.Version {
		t.Errorf("version: got %+v want %+v", got.Version, c.Version)
	}
	if got.Env["FOO"] != "bar" {
		t.Errorf("env not preserved: %+v", got.Env)
	}
	if got.Files["id-1"] != "greeting.txt" {
		t.Errorf("files not preserved: %+v", got.Files)
	}
	p, ok := got.Processes["a"]
	if !ok {
		t.Fatalf("process a missing")
	}
	if p.Cmd != "/bin/true" || len(p.Args) != 2 || p.Args[1] != "1" {
		t.Errorf("process fields not preserved: %+v", p)
	}
	if p.RestartPolicy != model.RestartOnFailure {
		t.Errorf("restart policy not preserved: %v", p.RestartPolicy)
	}
	if p.RestartDelay != 250*time.Millisecond {
		t.Errorf("restart delay not preserved: %v", p.RestartDelay)
	}
	if p.Files["id-2"] != "data.bin" {
		t.Errorf("process files not preserved: %+v", p.Files)
	}
	if string(got.FS) != string(c.FS) {
		t.Errorf("fs not preserved: %v", got.FS)
	}
}

func TestCapsuleRoundTripEmpty(t *testing.T) {
	c := &model.Capsule{Version: model.Version{Major: 1}}
	b := EncodeCapsule(c)
	got, err := DecodeCapsule(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Processes) != 0 || len(got.Env) != 0 || len(got.FS) != 0 {
		t.Errorf("expected empty capsule round trip, got %+v", got)
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := DecodeCapsule([]byte{0, 0}); err == nil {
		t.Fatalf("expected error decoding truncated buffer")
	}
}
