// Package bridge implements the file-sentinel control channel: a one-shot
// request/response exchange over a shared directory, for environments where
// a persistent socket is undesirable. Exactly two parties use a bridge
// directory at a time, one requester and one responder, coordinated by the
// PENDING -> DONE -> consumed protocol rather than file locks.
package bridge

import (
	"fmt"
	"os"
	"path/filepath"
)

// Well-known files inside a bridge directory.
const (
	CommandFile       = "command.txt"
	StatusFile        = "status.txt"
	AudioInFile       = "audio_in.raw"
	AudioOutFile      = "audio_out.raw"
	MetadataFile      = "metadata.txt"
	SessionStatusFile = "session_status.json"
	AudioEventsFile   = "audio_events.jsonl"
)

// Command words written to the command sentinel.
const (
	CommandProcess = "PROCESS"
	CommandQuit    = "QUIT"
	CommandStart   = "START"
	CommandEnd     = "END"
)

// StatusDone is the completion marker written by the responder; absence of
// the status file means the transaction is still pending.
const StatusDone = "DONE"

// Dir is a validated bridge directory.
type Dir struct {
	path string
}

// NewDir validates the bridge directory. A missing directory is a fatal
// configuration error at startup.
func NewDir(path string) (Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Dir{}, fmt.Errorf("bridge directory %q: %w", path, err)
	}
	if !info.IsDir() {
		return Dir{}, fmt.Errorf("bridge directory %q: not a directory", path)
	}
	return Dir{path: path}, nil
}

// Path returns the directory root.
func (d Dir) Path() string {
	return d.path
}

// File returns the absolute path of a well-known bridge file.
func (d Dir) File(name string) string {
	return filepath.Join(d.path, name)
}
