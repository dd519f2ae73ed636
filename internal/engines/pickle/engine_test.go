package pickle

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/asteroid-belt/aegis/internal/signatures"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func globalOpcode(module, attr string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(opGlobal)
	buf.WriteString(module)
	buf.WriteByte('\n')
	buf.WriteString(attr)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// shortBinunicode encodes a SHORT_BINUNICODE push followed by a
// MEMOIZE, the protocol 4/5 idiom pickle.dump uses in place of '\n'-
// terminated strings for every short identifier it writes.
func shortBinunicode(s string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(opShortBinunicode)
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	buf.WriteByte(opMemoize)
	return buf.Bytes()
}

// stackGlobalOpcode encodes module/attr the way protocol 4/5 actually
// emits global references: two memoized SHORT_BINUNICODE pushes
// followed by STACK_GLOBAL, rather than the legacy GLOBAL opcode.
func stackGlobalOpcode(module, attr string) []byte {
	var buf bytes.Buffer
	buf.Write(shortBinunicode(module))
	buf.Write(shortBinunicode(attr))
	buf.WriteByte(opStackGlobal)
	return buf.Bytes()
}

func TestScanCleanPickleHasNoThreats(t *testing.T) {
	data := []byte{opProto, 2, opEmptyDict, opStop}
	path := writeTemp(t, "clean.pkl", data)

	threats := Scan(path, Options{Signatures: signatures.Default()})
	require.Empty(t, threats)
}

func TestScanDetectsOSSystemGlobal(t *testing.T) {
	var data []byte
	data = append(data, globalOpcode("os", "system")...)
	data = append(data, opStop)
	path := writeTemp(t, "rce.pkl", data)

	threats := Scan(path, Options{Signatures: signatures.Default()})
	require.Len(t, threats, 1)
	require.Equal(t, models.SeverityCritical, threats[0].Severity)
	require.Equal(t, models.KindUnsafeReference, threats[0].Kind)
}

func TestScanDetectsOSSystemStackGlobal(t *testing.T) {
	var data []byte
	data = append(data, stackGlobalOpcode("os", "system")...)
	data = append(data, opStop)
	path := writeTemp(t, "rce_stackglobal.pkl", data)

	threats := Scan(path, Options{Signatures: signatures.Default()})
	require.Len(t, threats, 1)
	require.Equal(t, models.SeverityCritical, threats[0].Severity)
	require.Equal(t, models.KindUnsafeReference, threats[0].Kind)
}

func TestScanAllowedModuleSuppressesThreat(t *testing.T) {
	var data []byte
	data = append(data, globalOpcode("os", "system")...)
	data = append(data, opStop)
	path := writeTemp(t, "rce.pkl", data)

	threats := Scan(path, Options{
		Signatures:     signatures.Default(),
		AllowedModules: map[string]bool{"os": true},
	})
	require.Empty(t, threats)
}

func TestScanStrictModeFlagsNonWhitelistedModule(t *testing.T) {
	var data []byte
	data = append(data, globalOpcode("some_random_module", "load")...)
	data = append(data, opStop)
	path := writeTemp(t, "strict.pkl", data)

	threats := Scan(path, Options{
		Signatures:  signatures.Default(),
		Strict:      true,
		SafeModules: map[string]bool{"torch": true},
	})
	require.Len(t, threats, 1)
	require.Equal(t, models.SeverityMedium, threats[0].Severity)
}

func TestScanTruncatedStreamIsCriticalScanError(t *testing.T) {
	data := []byte{opGlobal, 'o', 's'} // missing newlines/attr
	path := writeTemp(t, "truncated.pkl", data)

	threats := Scan(path, Options{Signatures: signatures.Default()})
	require.Len(t, threats, 1)
	require.Equal(t, models.SeverityCritical, threats[0].Severity)
	require.Equal(t, models.KindScanError, threats[0].Kind)
}

func TestScanZipContainerFindsDataPkl(t *testing.T) {
	var payload []byte
	payload = append(payload, globalOpcode("os", "system")...)
	payload = append(payload, opStop)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("archive/data.pkl")
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := writeTemp(t, "model.pt", buf.Bytes())

	threats := Scan(path, Options{Signatures: signatures.Default()})
	require.Len(t, threats, 1)
	require.Equal(t, "archive/data.pkl", threats[0].Locator[:len("archive/data.pkl")])
}
