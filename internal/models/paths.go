package models

import (
	"fmt"
	"os"
	"path/filepath"
)

// Default model filenames looked up inside the models directory.
const (
	DetectionDefault   = "PP-OCRv5_mobile_det.onnx"
	RecognitionDefault = "latin_PP-OCRv5_mobile_rec.onnx"
	DictionaryDefault  = "ppocrv5_latin_dict.txt"
)

// Subdirectories of the organized layout.
const (
	TypeDetection    = "detection"
	TypeRecognition  = "recognition"
	TypeDictionaries = "dictionaries"
)

// DefaultModelsDir is used when neither config nor environment names a directory.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "QDOCR_MODELS_DIR"

// Paths holds resolved model file locations.
type Paths struct {
	Detection   string
	Recognition string
	Dictionary  string
}

// GetModelsDir returns modelsDir, else $QDOCR_MODELS_DIR, else DefaultModelsDir.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if env := os.Getenv(EnvModelsDir); env != "" {
		return env
	}
	return DefaultModelsDir
}

// ResolveModelPath resolves filename inside the models directory. Absolute
// filenames and filenames containing a directory are returned unchanged.
// Otherwise the organized layout (<dir>/<type>/<file>) is preferred when it
// exists, falling back to the flat layout (<dir>/<file>).
func ResolveModelPath(modelsDir, modelType, filename string) string {
	if filename == "" {
		return ""
	}
	if filepath.IsAbs(filename) || filepath.Base(filename) != filename {
		return filename
	}
	base := GetModelsDir(modelsDir)
	if modelType != "" {
		organized := filepath.Join(base, modelType, filename)
		if _, err := os.Stat(organized); err == nil {
			return organized
		}
	}
	return filepath.Join(base, filename)
}

// Resolve fills in defaults for empty names and resolves all three paths.
func Resolve(modelsDir, detection, recognition, dictionary string) Paths {
	if detection == "" {
		detection = DetectionDefault
	}
	if recognition == "" {
		recognition = RecognitionDefault
	}
	if dictionary == "" {
		dictionary = DictionaryDefault
	}
	return Paths{
		Detection:   ResolveModelPath(modelsDir, TypeDetection, detection),
		Recognition: ResolveModelPath(modelsDir, TypeRecognition, recognition),
		Dictionary:  ResolveModelPath(modelsDir, TypeDictionaries, dictionary),
	}
}

// ValidateModelExists checks that a model file exists.
func ValidateModelExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("model file not found: %s", path)
	}
	return nil
}
