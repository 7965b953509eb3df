package wire

import (
	"fmt"
	"sort"

	"github.com/capsulenv/capsulenv/internal/model"
)

// EncodeCapsule serializes a Capsule with the compact binary encoding:
// length-prefixed, fixed-endian, no self-describing field names. Used
// both for the plaintext/encrypted payload and, by the packager,
// before encryption.
func EncodeCapsule(c *model.Capsule) []byte {
	w := NewWriter()
	w.PutUint32(c.Version.Major)
	w.PutUint32(c.Version.Minor)
	w.PutUint32(c.Version.Patch)
	w.PutStringMap(c.Env)
	w.PutStringMap(c.Files)

	names := make([]string, 0, len(c.Processes))
	for name := range c.Processes {
		names = append(names, name)
	}
	sort.Strings(names)
	w.PutUint32(uint32(len(names)))
	for _, name := range names {
		p := c.Processes[name]
		w.PutString(name)
		encodeProcess(w, p)
	}

	w.PutBytes(c.FS)
	return w.Bytes()
}

func encodeProcess(w *Writer, p *model.Process) {
	w.PutString(p.Cmd)
	w.PutStringSlice(p.Args)
	w.PutString(p.Cwd)
	w.PutStringMap(p.Env)
	w.PutUint8(uint8(p.RestartPolicy))
	w.PutDuration(p.RestartDelay)
	w.PutStringMap(p.Files)
}

// DecodeCapsule parses the bytes produced by EncodeCapsule.
func DecodeCapsule(b []byte) (*model.Capsule, error) {
	r := NewReader(b)
	c := &model.Capsule{}

	var err error
	if c.Version.Major, err = r.GetUint32(); err != nil {
		return nil, fmt.Errorf("decode capsule version.major: %w", err)
	}
	if c.Version.Minor, err = r.GetUint32(); err != nil {
		return nil, fmt.Errorf("decode capsule version.minor: %w", err)
	}
	if c.Version.Patch, err = r.GetUint32(); err != nil {
		return nil, fmt.Errorf("decode capsule version.patch: %w", err)
	}
	if c.Env, err = r.GetStringMap(); err != nil {
		return nil, fmt.Errorf("decode capsule env: %w", err)
	}
	if c.Files, err = r.GetStringMap(); err != nil {
		return nil, fmt.Errorf("decode capsule files: %w", err)
	}

	n, err := r.GetUint32()
	if err != nil {
		return nil, fmt.Errorf("decode capsule process count: %w", err)
	}
	c.Processes = make(map[string]*model.Process, n)
	for i := uint32(0); i < n; i++ {
		name, err := r.GetString()
		if err != nil {
			return nil, fmt.Errorf("decode process name: %w", err)
		}
		p, err := decodeProcess(r)
		if err != nil {
			return nil, fmt.Errorf("decode process %q: %w", name, err)
		}
		c.Processes[name] = p
	}

	if c.FS, err = r.GetBytes(); err != nil {
		return nil, fmt.Errorf("decode capsule fs: %w", err)
	}
	return c, nil
}

func decodeProcess(r *Reader) (*model.Process, error) {
	p := &model.Process{}
	var err error
	if p.Cmd, err = r.GetString(); err != nil {
		return nil, err
	}
	if p.Args, err = r.GetStringSlice(); err != nil {
		return nil, err
	}
	if p.Cwd, err = r.GetString(); err != nil {
		return nil, err
	}
	if p.Env, err = r.GetStringMap(); err != nil {
		return nil, err
	}
	policy, err := r.GetUint8()
	if err != nil {
		return nil, err
	}
	p.RestartPolicy = model.RestartPolicy(policy)
	if p.RestartDelay, err = r.GetDuration(); err != nil {
		return nil, err
	}
	if p.Files, err = r.GetStringMap(); err != nil {
		return nil, err
	}
	return p, nil
}
