package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/runtimeboot"
)

// selfExePath resolves the running executable, following symlinks
// before using the path to locate the embedded payload.
func selfExePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", cerr.SupervisorCantBeFound()
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

// extractionRoot returns <sibling>/.capsule for the running executable.
func extractionRoot() (string, error) {
	exe, err := selfExePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), ".capsule"), nil
}

// readPort reads the control port a running supervisor wrote to
// capsule.port. Returns SupervisorCantBeFound if the file is absent or
// unparsable, which this system's commands surface as "not running".
func readPort() (int, error) {
	root, err := extractionRoot()
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(filepath.Join(root, runtimeboot.PortFileName))
	if err != nil {
		return 0, cerr.SupervisorCantBeFound()
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, cerr.SupervisorCantBeFound()
	}
	return port, nil
}
