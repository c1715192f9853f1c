package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rulegen/internal/testutil"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData decodes a JSON CLIResponse and its data payload into data.
func decodeData(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// sourceTree writes 7 rules in 3 packages, two of them in unit Checkout.
func sourceTree(t *testing.T) string {
	t.Helper()
	return testutil.WriteTree(t, t.TempDir(), map[string]string{
		"a/pricing.drl":  testutil.DRL("org.acme.a", "", "Base price", "Discount", "Tax"),
		"b/shipping.drl": testutil.DRL("org.acme.b", "", "Ship", "Track"),
		"u/checkout.drl": testutil.DRL("org.acme.u", "Checkout", "Pay", "Confirm"),
		"README.md":      "not a source",
	})
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of watch.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func fileIn(root string, parts ...string) string {
	return filepath.Join(append([]string{root}, parts...)...)
}
