package handover

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileOpener writes receipt documents to a directory, one file per
// registro. The web console opened the document in a new tab; a file on
// disk is the headless equivalent.
type FileOpener struct {
	Dir string
}

func (o FileOpener) Open(registroID string, document []byte) error {
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return fmt.Errorf("receipt dir: %w", err)
	}

	path := filepath.Join(o.Dir, fmt.Sprintf("registro-%s.pdf", registroID))
	if err := os.WriteFile(path, document, 0o644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}

	return nil
}

// NopOpener discards receipts; used where no presentation layer is
// attached.
type NopOpener struct{}

func (NopOpener) Open(string, []byte) error { return nil }
