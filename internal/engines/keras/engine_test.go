package keras

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/asteroid-belt/aegis/internal/models"
	"github.com/stretchr/testify/require"
)

func writeZipModel(t *testing.T, config map[string]any) string {
	t.Helper()
	body, err := json.Marshal(config)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("config.json")
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "model.keras")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestScanZipCleanModelHasNoThreats(t *testing.T) {
	config := map[string]any{
		"config": map[string]any{
			"layers": []any{
				map[string]any{"class_name": "Dense"},
			},
		},
	}
	path := writeZipModel(t, config)
	require.Empty(t, Scan(path))
}

func TestScanZipDetectsLambdaLayer(t *testing.T) {
	config := map[string]any{
		"config": map[string]any{
			"layers": []any{
				map[string]any{"class_name": "Lambda"},
			},
		},
	}
	path := writeZipModel(t, config)

	threats := Scan(path)
	require.Len(t, threats, 1)
	require.Equal(t, models.SeverityCritical, threats[0].Severity)
	require.Equal(t, models.KindCodeLayer, threats[0].Kind)
}

func TestScanZipRecursesIntoNestedModel(t *testing.T) {
	config := map[string]any{
		"config": map[string]any{
			"layers": []any{
				map[string]any{
					"class_name": "Functional",
					"config": map[string]any{
						"layers": []any{
							map[string]any{"class_name": "Lambda"},
						},
					},
				},
			},
		},
	}
	path := writeZipModel(t, config)

	threats := Scan(path)
	require.Len(t, threats, 1)
	require.Equal(t, models.KindCodeLayer, threats[0].Kind)
}

func TestScanHDF5HeuristicFindsLambda(t *testing.T) {
	config := map[string]any{
		"config": map[string]any{
			"layers": []any{
				map[string]any{"class_name": "Lambda"},
			},
		},
	}
	body, err := json.Marshal(config)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write(hdf5Signature)
	buf.WriteString("junk-header-bytes")
	buf.WriteString("model_config")
	buf.Write(body)

	path := filepath.Join(t.TempDir(), "model.h5")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	threats := Scan(path)
	require.Len(t, threats, 1)
	require.Equal(t, models.KindCodeLayer, threats[0].Kind)
}

func TestScanHDF5WithoutModelConfigIsEmpty(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(hdf5Signature)
	buf.WriteString("no attributes of interest here")

	path := filepath.Join(t.TempDir(), "weights.h5")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	require.Empty(t, Scan(path))
}
