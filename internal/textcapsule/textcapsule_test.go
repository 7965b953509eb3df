package textcapsule

import (
	"testing"

	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/model"
)

func TestParseJSON(t *testing.T) {
	text := []byte(`{
		"version": "1.0.0",
		"processes": {
			"a": {"cmd": "/bin/true", "restart_policy": "never"}
		}
	}`)
	c, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Version != (model.Version{Major: 1, Minor: 0, Patch: 0}) {
		t.Errorf("version: %+v", c.Version)
	}
	if c.Processes["a"].Cmd != "/bin/true" {
		t.Errorf("cmd: %+v", c.Processes["a"])
	}
}

func TestParseTOMLFallback(t *testing.T) {
	text := []byte(`
version = "1.0.0"

[processes.a]
cmd = "/bin/true"
restart_policy = "on_failure"
`)
	c, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Processes["a"].RestartPolicy != model.RestartOnFailure {
		t.Errorf("restart policy: %+v", c.Processes["a"])
	}
}

func TestParseSemanticJSONErrorDoesNotFallBackToTOML(t *testing.T) {
	// "fs" is not a valid text-input field; this is valid JSON syntax
	// but an unknown field, so it must abort with InvalidDataFormat
	// rather than attempting TOML.
	text := []byte(`{"version": "1.0.0", "fs": "AAAA"}`)
	_, err := Parse(text)
	if err == nil {
		t.Fatalf("expected error for fs field in text input")
	}
	e, ok := err.(*cerr.Error)
	if !ok || e.Kind != cerr.KindInvalidDataFormat {
		t.Errorf("expected InvalidDataFormat, got %v", err)
	}
}

func TestParseTOMLRejectsUnknownFsField(t *testing.T) {
	// "fs" must not appear in text input either, including via the TOML
	// fallback path, so an undecoded "fs" key must abort the same way
	// the JSON path does.
	text := []byte(`
version = "1.0.0"
fs = "AAAA"
`)
	_, err := Parse(text)
	if err == nil {
		t.Fatalf("expected error for fs field in TOML text input")
	}
	e, ok := err.(*cerr.Error)
	if !ok || e.Kind != cerr.KindInvalidDataFormat {
		t.Errorf("expected InvalidDataFormat, got %v", err)
	}
}

func TestParseInvalidBoth(t *testing.T) {
	text := []byte(`not json and not toml {{{`)
	_, err := Parse(text)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseDefaultRestartPolicy(t *testing.T) {
	text := []byte(`{"version":"1.0.0","processes":{"a":{"cmd":"/bin/true"}}}`)
	c, err := Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Processes["a"].RestartPolicy != model.RestartNever {
		t.Errorf("expected default never policy, got %v", c.Processes["a"].RestartPolicy)
	}
}
