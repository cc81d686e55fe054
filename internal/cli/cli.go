// Package cli implements the medulla command line. Each command constructor
// returns a cobra.Command; cmd/medulla assembles them under the root.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/medullahq/medulla/internal/config"
	"github.com/medullahq/medulla/internal/logging"
	"github.com/medullahq/medulla/internal/merr"
	"github.com/medullahq/medulla/internal/service"
	"github.com/medullahq/medulla/internal/store"
)

// Version is stamped into the binary and reported by the MCP handshake.
const Version = "0.1.0"

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

// ExitCode maps a command error to the process exit status: 2 for
// project-state errors (not initialized, already initialized), 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, merr.ErrNotInitialized) || errors.Is(err, merr.ErrAlreadyInitialized) {
		return 2
	}
	return 1
}

// projectRoot walks up from the working directory to the project root.
func projectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return store.DiscoverRoot(cwd)
}

// openService locates the project, wires logging and opens the service.
func openService() (*service.Service, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	logging.Setup(filepath.Join(root, store.DirName), config.LogLevel())
	return service.Open(root)
}
