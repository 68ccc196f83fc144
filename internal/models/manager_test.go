package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindModel(t *testing.T) {
	m := FindModel("ggml-base.en.bin")
	require.NotNil(t, m)
	assert.Equal(t, "whisper", m.Engine)
	assert.False(t, m.Archive)

	m = FindModel("vosk-model-small-en-us-0.15")
	require.NotNil(t, m)
	assert.Equal(t, "vosk", m.Engine)
	assert.True(t, m.Archive)

	assert.Nil(t, FindModel("no-such-model"))
}

func TestDefaultModelRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	// No config file yet: the built-in default.
	name, err := GetDefaultModel()
	require.NoError(t, err)
	assert.Equal(t, DefaultModelName, name)

	require.NoError(t, SetDefaultModel("ggml-tiny.en.bin"))
	name, err = GetDefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "ggml-tiny.en.bin", name)

	assert.Error(t, SetDefaultModel("no-such-model"))
}

func TestIsModelDownloaded(t *testing.T) {
	t.Chdir(t.TempDir())
	modelsDir, err := GetModelsDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(modelsDir, 0755))

	ok, err := IsModelDownloaded("ggml-base.en.bin")
	require.NoError(t, err)
	assert.False(t, ok)

	// Whisper models are files.
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "ggml-base.en.bin"), []byte("x"), 0644))
	ok, err = IsModelDownloaded("ggml-base.en.bin")
	require.NoError(t, err)
	assert.True(t, ok)

	// Vosk models are directories; a stray file does not count.
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "vosk-model-small-en-us-0.15"), []byte("x"), 0644))
	ok, err = IsModelDownloaded("vosk-model-small-en-us-0.15")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetModelPath(t *testing.T) {
	t.Chdir(t.TempDir())
	modelsDir, err := GetModelsDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(modelsDir, 0755))

	_, err = GetModelPath("ggml-base.en.bin")
	assert.Error(t, err, "not downloaded yet")

	want := filepath.Join(modelsDir, "ggml-base.en.bin")
	require.NoError(t, os.WriteFile(want, []byte("x"), 0644))

	got, err := GetModelPath("ggml-base.en.bin")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestListDownloadedModels(t *testing.T) {
	t.Chdir(t.TempDir())

	// Missing models directory is an empty list, not an error.
	list, err := ListDownloadedModels()
	require.NoError(t, err)
	assert.Empty(t, list)

	modelsDir, err := GetModelsDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(modelsDir, "vosk-model-small-en-us-0.15"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "ggml-tiny.en.bin"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, ".default_model"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "notes.txt"), []byte("x"), 0644))

	list, err = ListDownloadedModels()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ggml-tiny.en.bin", "vosk-model-small-en-us-0.15"}, list)
}

func TestResolveModelPath(t *testing.T) {
	t.Chdir(t.TempDir())
	modelsDir, err := GetModelsDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(modelsDir, 0755))

	// Explicit path wins but must exist.
	explicit := filepath.Join(t.TempDir(), "custom.bin")
	_, err = ResolveModelPath(explicit, "")
	assert.Error(t, err)
	require.NoError(t, os.WriteFile(explicit, []byte("x"), 0644))
	got, err := ResolveModelPath(explicit, "ignored")
	require.NoError(t, err)
	assert.Equal(t, explicit, got)

	// Empty name falls back to the default model.
	deflt := filepath.Join(modelsDir, DefaultModelName)
	require.NoError(t, os.WriteFile(deflt, []byte("x"), 0644))
	got, err = ResolveModelPath("", "")
	require.NoError(t, err)
	assert.Equal(t, deflt, got)
}
