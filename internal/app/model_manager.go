package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/emmett/murmur/internal/models"
)

type ModelManager struct{}

func NewModelManager() *ModelManager {
	return &ModelManager{}
}

func (m *ModelManager) ListModels() error {
	fmt.Println("Available models for download:")
	fmt.Println()

	for i, model := range models.AvailableModels {
		fmt.Printf("%d. %s\n", i+1, model.Name)
		fmt.Printf("   Engine:   %s\n", model.Engine)
		fmt.Printf("   Language: %s\n", model.Language)
		fmt.Printf("   Size:     %s\n", model.Size)
		fmt.Printf("   Info:     %s\n", model.Description)

		downloaded, _ := models.IsModelDownloaded(model.Name)
		if downloaded {
			fmt.Printf("   Status:   ✓ Downloaded\n")
		} else {
			fmt.Printf("   Status:   Not downloaded\n")
		}
		fmt.Println()
	}

	fmt.Println("To download a model, use:")
	fmt.Println("  murmur --download-model <model-name>")
	return nil
}

func (m *ModelManager) ListDownloaded() error {
	downloaded, err := models.ListDownloadedModels()
	if err != nil {
		return fmt.Errorf("error listing models: %w", err)
	}

	if len(downloaded) == 0 {
		fmt.Println("No models downloaded yet.")
		fmt.Println()
		fmt.Println("Use 'murmur --list-models' to see available models")
		fmt.Println("Use 'murmur --download-model <name>' to download a model")
		return nil
	}

	defaultName, _ := models.GetDefaultModel()

	fmt.Printf("Downloaded models (%d):\n", len(downloaded))
	fmt.Println()

	for i, modelName := range downloaded {
		fmt.Printf("%d. %s", i+1, modelName)
		if modelName == defaultName {
			fmt.Printf(" [DEFAULT]")
		}
		fmt.Println()

		modelPath, err := models.GetModelPath(modelName)
		if err == nil {
			fmt.Printf("   Path: %s\n", modelPath)
		}
	}
	fmt.Println()
	fmt.Println("To use a model, run:")
	fmt.Println("  murmur --model <model-name>")
	return nil
}

func (m *ModelManager) Download(name string) error {
	model := models.FindModel(name)
	if model == nil {
		fmt.Fprintf(os.Stderr, "Error: Unknown model '%s'\n", name)
		fmt.Println()
		fmt.Println("Use 'murmur --list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	downloaded, err := models.IsModelDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}

	if downloaded {
		fmt.Printf("Model '%s' is already downloaded.\n", name)
		modelPath, _ := models.GetModelPath(name)
		fmt.Printf("Location: %s\n", modelPath)
		return nil
	}

	fmt.Printf("Downloading model: %s (%s)\n", model.Name, model.Size)
	fmt.Printf("Description: %s\n", model.Description)
	fmt.Println()

	err = models.DownloadModel(name, downloadProgress)
	if err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}

	fmt.Println()
	fmt.Printf("✓ Model '%s' downloaded successfully!\n", name)
	return nil
}

func (m *ModelManager) SetDefault(name string) error {
	model := models.FindModel(name)
	if model == nil {
		fmt.Fprintf(os.Stderr, "Error: Unknown model '%s'\n", name)
		fmt.Println()
		fmt.Println("Use 'murmur --list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	err := models.SetDefaultModel(name)
	if err != nil {
		return fmt.Errorf("error setting default model: %w", err)
	}

	fmt.Printf("✓ Default model set to: %s\n", name)
	fmt.Printf("  Description: %s\n", model.Description)
	fmt.Printf("  Size: %s\n", model.Size)
	fmt.Println()

	downloaded, _ := models.IsModelDownloaded(name)
	if !downloaded {
		fmt.Println("Note: This model is not yet downloaded.")
		fmt.Printf("Run 'murmur --download-model %s' to download it.\n", name)
	}
	return nil
}

// EnsureModel checks that the model exists locally, downloading it when
// autoDownload is set or the user confirms.
func (m *ModelManager) EnsureModel(name string, autoDownload bool) (string, error) {
	downloaded, err := models.IsModelDownloaded(name)
	if err != nil {
		return "", fmt.Errorf("failed to check for model: %w", err)
	}

	if downloaded {
		return name, nil
	}

	if autoDownload {
		fmt.Printf("Model '%s' not found. Downloading automatically...\n", name)
		if err := models.DownloadModel(name, downloadProgress); err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
		fmt.Println()
		return name, nil
	}

	fmt.Printf("Model '%s' not found.\n", name)
	fmt.Println()
	fmt.Println("Available models:")
	for i, model := range models.AvailableModels {
		marker := ""
		if model.Name == name {
			marker = " (selected)"
		}
		fmt.Printf("  %d. %s (%s) - %s%s\n", i+1, model.Name, model.Size, model.Description, marker)
	}
	fmt.Println()
	fmt.Printf("Download '%s'? (y/n): ", name)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		fmt.Println()
		fmt.Println("You can download models using:")
		fmt.Println("  murmur --list-models           # List available models")
		fmt.Println("  murmur --download-model <name> # Download a specific model")
		return "", fmt.Errorf("model download declined")
	}

	if err := models.DownloadModel(name, downloadProgress); err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	fmt.Println()

	return name, nil
}

// SelectModel resolves the model name to use: explicit name wins, otherwise
// the configured default.
func (m *ModelManager) SelectModel(modelName string) (string, error) {
	if modelName != "" {
		return modelName, nil
	}
	return models.GetDefaultModel()
}

func downloadProgress(downloaded, total int64) {
	if total <= 0 {
		fmt.Printf("\rProgress: %d bytes", downloaded)
		return
	}
	percent := float64(downloaded) / float64(total) * 100
	fmt.Printf("\rProgress: %.1f%% (%d/%d bytes)", percent, downloaded, total)
}
