package handover_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posto/internal/services/handover"
)

func TestFileOpener(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "receipts")
	opener := handover.FileOpener{Dir: dir}

	document := []byte("%PDF-1.4 recibo")
	require.NoError(t, opener.Open("55", document))

	got, err := os.ReadFile(filepath.Join(dir, "registro-55.pdf"))
	require.NoError(t, err)
	assert.Equal(t, document, got)
}

func TestNopOpener(t *testing.T) {
	assert.NoError(t, handover.NopOpener{}.Open("55", []byte("doc")))
}
