// Package textcapsule parses the packager's textual capsule format:
// JSON first; on a JSON *syntax* error, TOML as a fallback; any other
// JSON error (semantic/schema) or a failing TOML parse aborts with
// cerr.InvalidDataFormat. Decoding rejects unknown fields in both
// formats.
package textcapsule

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/model"
)

// textProcess and textCapsule mirror the textual field names exactly:
// version, env, files, processes, cmd, args, cwd, restart_policy,
// restart_delay. fs must not appear in text input — there is simply no
// field for it here, so any "fs" key is rejected by DisallowUnknownFields.
type textProcess struct {
	Cmd           string            `json:"cmd" toml:"cmd"`
	Args          []string          `json:"args" toml:"args"`
	Cwd           string            `json:"cwd" toml:"cwd"`
	Env           map[string]string `json:"env" toml:"env"`
	RestartPolicy string            `json:"restart_policy" toml:"restart_policy"`
	RestartDelay  int64             `json:"restart_delay" toml:"restart_delay"` // milliseconds
	Files         map[string]string `json:"files" toml:"files"`
}

type textCapsule struct {
	Version   string                  `json:"version" toml:"version"`
	Env       map[string]string       `json:"env" toml:"env"`
	Files     map[string]string       `json:"files" toml:"files"`
	Processes map[string]textProcess  `json:"processes" toml:"processes"`
}

// Parse reads capsule text, trying JSON then TOML.
func Parse(text []byte) (*model.Capsule, error) {
	var tc textCapsule

	jsonErr := jsonDecodeStrict(text, &tc)
	if jsonErr == nil {
		return toModel(tc)
	}
	if !isSyntaxError(jsonErr) {
		return nil, cerr.InvalidDataFormat()
	}

	tc = textCapsule{}
	md, err := toml.Decode(string(text), &tc)
	if err != nil {
		return nil, cerr.InvalidDataFormat()
	}
	if len(md.Undecoded()) > 0 {
		return nil, cerr.InvalidDataFormat()
	}
	return toModel(tc)
}

func jsonDecodeStrict(text []byte, tc *textCapsule) error {
	dec := json.NewDecoder(strings.NewReader(string(text)))
	dec.DisallowUnknownFields()
	return dec.Decode(tc)
}

func isSyntaxError(err error) bool {
	_, isSyntax := err.(*json.SyntaxError)
	if isSyntax {
		return true
	}
	// json.Decoder also returns io.ErrUnexpectedEOF for a truncated
	// document, which is a syntax-level failure, not a semantic one.
	return err.Error() == "unexpected EOF"
}

func toModel(tc textCapsule) (*model.Capsule, error) {
	version, err := parseVersion(tc.Version)
	if err != nil {
		return nil, cerr.InvalidDataFormat()
	}

	c := &model.Capsule{
		Version:   version,
		Env:       tc.Env,
		Files:     tc.Files,
		Processes: make(map[string]*model.Process, len(tc.Processes)),
	}
	for name, tp := range tc.Processes {
		policy, ok := model.ParseRestartPolicy(tp.RestartPolicy)
		if !ok {
			return nil, cerr.InvalidDataFormat()
		}
		c.Processes[name] = &model.Process{
			Cmd:           tp.Cmd,
			Args:          tp.Args,
			Cwd:           tp.Cwd,
			Env:           tp.Env,
			RestartPolicy: policy,
			RestartDelay:  time.Duration(tp.RestartDelay) * time.Millisecond,
			Files:         tp.Files,
		}
	}
	return c, nil
}

func parseVersion(s string) (model.Version, error) {
	if s == "" {
		return model.Version{}, cerr.InvalidDataFormat()
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return model.Version{}, cerr.InvalidDataFormat()
	}
	nums := make([]uint32, 3)
	for i, p := range parts {
		n, err := parseUint(p)
		if err != nil {
			return model.Version{}, cerr.InvalidDataFormat()
		}
		nums[i] = n
	}
	return model.Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func parseUint(s string) (uint32, error) {
	var n uint32
	if s == "" {
		return 0, cerr.InvalidDataFormat()
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, cerr.InvalidDataFormat()
		}
		n = n*10 + uint32(r-'0')
	}
	return n, nil
}
