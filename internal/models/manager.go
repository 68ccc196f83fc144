package models

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Model represents a downloadable recognition model.
type Model struct {
	Name        string
	Engine      string // "whisper" or "vosk"
	Language    string
	Size        string
	URL         string
	Archive     bool // true when the download is a zip to extract
	Description string
}

// Available models. Whisper models are single ggml files; vosk models are
// zipped directories.
var AvailableModels = []Model{
	{
		Name:        "ggml-tiny.en.bin",
		Engine:      "whisper",
		Language:    "en",
		Size:        "75M",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.en.bin",
		Description: "Smallest English whisper model, fastest but least accurate",
	},
	{
		Name:        "ggml-base.en.bin",
		Engine:      "whisper",
		Language:    "en",
		Size:        "142M",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin",
		Description: "Base English whisper model, good speed/accuracy balance",
	},
	{
		Name:        "ggml-small.en.bin",
		Engine:      "whisper",
		Language:    "en",
		Size:        "466M",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.en.bin",
		Description: "Small English whisper model, slower but more accurate",
	},
	{
		Name:        "vosk-model-small-en-us-0.15",
		Engine:      "vosk",
		Language:    "en-US",
		Size:        "40M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Archive:     true,
		Description: "Lightweight English vosk model, fast but less accurate",
	},
}

// DefaultModelName is the default model to use
const DefaultModelName = "ggml-base.en.bin"

// GetModelsDir returns the directory where models are stored
func GetModelsDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, "models"), nil
}

// GetDefaultModel returns the configured default model name
// If no custom default is set, returns DefaultModelName
func GetDefaultModel() (string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return DefaultModelName, err
	}

	configFile := filepath.Join(modelsDir, ".default_model")
	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultModelName, nil
		}
		return DefaultModelName, err
	}

	modelName := strings.TrimSpace(string(data))
	if modelName == "" {
		return DefaultModelName, nil
	}

	return modelName, nil
}

// SetDefaultModel sets the default model to use
func SetDefaultModel(modelName string) error {
	model := FindModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	modelsDir, err := GetModelsDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	configFile := filepath.Join(modelsDir, ".default_model")
	err = os.WriteFile(configFile, []byte(modelName), 0644)
	if err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}

	return nil
}

// IsModelDownloaded checks if a model is already downloaded
func IsModelDownloaded(modelName string) (bool, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return false, err
	}

	modelPath := filepath.Join(modelsDir, modelName)
	info, err := os.Stat(modelPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Vosk models are directories, whisper models are files.
	if model := FindModel(modelName); model != nil && model.Archive {
		return info.IsDir(), nil
	}
	return !info.IsDir(), nil
}

// GetModelPath returns the path to a downloaded model
func GetModelPath(modelName string) (string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return "", err
	}

	modelPath := filepath.Join(modelsDir, modelName)

	downloaded, err := IsModelDownloaded(modelName)
	if err != nil {
		return "", err
	}
	if !downloaded {
		return "", fmt.Errorf("model not found: %s", modelName)
	}

	return modelPath, nil
}

// FindModel finds a model by name in the available models list
func FindModel(name string) *Model {
	for _, model := range AvailableModels {
		if model.Name == name {
			return &model
		}
	}
	return nil
}

// DownloadModel downloads a model. Zip archives are extracted into the
// models directory; plain files are stored as-is.
func DownloadModel(modelName string, progress func(downloaded, total int64)) error {
	model := FindModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	modelsDir, err := GetModelsDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	destPath := filepath.Join(modelsDir, modelName)
	downloadPath := destPath
	if model.Archive {
		downloadPath = destPath + ".zip"
		defer os.Remove(downloadPath)
	} else {
		// Download to a temp name so a partial file never looks installed.
		downloadPath = destPath + ".partial"
		defer os.Remove(downloadPath)
	}

	resp, err := http.Get(model.URL)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(downloadPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	total := resp.ContentLength
	var downloaded int64

	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write file: %w", writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("download error: %w", err)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish download: %w", err)
	}

	if model.Archive {
		if err := extractZip(downloadPath, modelsDir); err != nil {
			return fmt.Errorf("failed to extract model: %w", err)
		}
		return nil
	}

	if err := os.Rename(downloadPath, destPath); err != nil {
		return fmt.Errorf("failed to install model: %w", err)
	}
	return nil
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// Check for ZipSlip vulnerability
		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(fpath, os.ModePerm)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return err
		}

		outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			outFile.Close()
			return err
		}

		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// ListDownloadedModels lists all downloaded models
func ListDownloadedModels() ([]string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(modelsDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var models []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() && strings.HasPrefix(name, "vosk-model-") {
			models = append(models, name)
		}
		if !entry.IsDir() && strings.HasPrefix(name, "ggml-") && strings.HasSuffix(name, ".bin") {
			models = append(models, name)
		}
	}

	return models, nil
}

// ResolveModelPath resolves a model reference to a filesystem path. An
// explicit path wins; otherwise the name is looked up in the models
// directory, falling back to the configured default model.
func ResolveModelPath(explicitPath, name string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("model path %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}

	if name == "" {
		var err error
		name, err = GetDefaultModel()
		if err != nil {
			return "", err
		}
	}

	return GetModelPath(name)
}
