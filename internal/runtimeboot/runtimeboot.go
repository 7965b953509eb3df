// Package runtimeboot is the supervisor-side startup sequence: locate
// the embedded payload inside the running executable, decrypt it if
// needed, decode the Capsule, extract its bundled files under the
// extraction root, bind the loopback control socket, and hand back a
// running process table plus everything the command loop needs to
// service it.
package runtimeboot

import (
	"os"
	"path/filepath"

	"github.com/capsulenv/capsulenv/internal/archive"
	"github.com/capsulenv/capsulenv/internal/capsulefooter"
	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/controlproto"
	"github.com/capsulenv/capsulenv/internal/envcrypto"
	"github.com/capsulenv/capsulenv/internal/model"
	"github.com/capsulenv/capsulenv/internal/runtimeenv"
	"github.com/capsulenv/capsulenv/internal/supervisor"
	"github.com/capsulenv/capsulenv/internal/wire"
)

// PortFileName is written under the extraction root so clients (and a
// future instance of this same runtime, invoked for `proc`/`daemon`
// subcommands) can find the supervisor's control port.
const PortFileName = "capsule.port"

// Boot is the fully-assembled result of a successful startup.
type Boot struct {
	Capsule    *model.Capsule
	Table      *supervisor.Table
	Server     *controlproto.Server
	ExtractRoot string
}

// Start runs the full startup sequence for the executable at exePath.
func Start(exePath string) (*Boot, error) {
	payload, encrypted, err := capsulefooter.Locate(exePath)
	if err != nil {
		return nil, err
	}

	if encrypted {
		password, ok := runtimeenv.Password()
		if !ok {
			return nil, cerr.InvalidPassword()
		}
		payload, err = envcrypto.Decrypt(password, payload)
		if err != nil {
			return nil, err
		}
	}

	capsule, err := wire.DecodeCapsule(payload)
	if err != nil {
		return nil, cerr.InvalidDataFormat()
	}

	sibling := filepath.Dir(exePath)
	root := filepath.Join(sibling, ".capsule")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, cerr.CouldNotCreatePath(root)
	}

	if len(capsule.FS) > 0 {
		if len(capsule.Files) > 0 {
			if err := archive.Extract(capsule.FS, capsule.Files, root); err != nil {
				return nil, err
			}
		}
		for name, p := range capsule.Processes {
			if len(p.Files) == 0 {
				continue
			}
			cwd := filepath.Join(root, p.EffectiveCwd(name))
			if err := os.MkdirAll(cwd, 0o755); err != nil {
				return nil, cerr.CouldNotCreatePath(cwd)
			}
			if err := archive.Extract(capsule.FS, p.Files, cwd); err != nil {
				return nil, err
			}
		}
		capsule.FS = nil
	}

	srv, err := controlproto.Listen(0)
	if err != nil {
		return nil, err
	}

	table := supervisor.NewTable(capsule.Env, capsule.Processes)
	table.StartAll(root)

	if err := os.WriteFile(filepath.Join(root, PortFileName), []byte(itoa(srv.Port())), 0o644); err != nil {
		srv.Close()
		return nil, cerr.CouldNotWriteFile(PortFileName)
	}

	return &Boot{Capsule: capsule, Table: table, Server: srv, ExtractRoot: root}, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
