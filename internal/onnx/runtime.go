package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	onnxrt "github.com/yalue/onnxruntime_go"
)

var (
	initMu   sync.Mutex
	initDone bool
)

// systemLibraryPaths are searched when no explicit library path is configured.
var systemLibraryPaths = []string{
	"/usr/local/lib",
	"/usr/lib",
	"/opt/onnxruntime/cpu/lib",
}

// libraryName returns the ONNX Runtime shared library filename for goos.
func libraryName(goos string) (string, error) {
	switch goos {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// ResolveLibraryPath picks the shared library to load. An explicit path wins,
// then ONNXRUNTIME_LIB, then well-known system directories, then an
// onnxruntime/lib directory next to the working directory.
func ResolveLibraryPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("onnxruntime library not found at %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if env := os.Getenv("ONNXRUNTIME_LIB"); env != "" {
		return ResolveLibraryPath(env)
	}
	name, err := libraryName(runtime.GOOS)
	if err != nil {
		return "", err
	}
	candidates := make([]string, 0, len(systemLibraryPaths)+1)
	for _, dir := range systemLibraryPaths {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "onnxruntime", "lib", name))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.New("onnxruntime shared library not found; set models.library_path or ONNXRUNTIME_LIB")
}

// Initialize loads the ONNX Runtime library once per process. Later calls are
// no-ops.
func Initialize(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()
	if initDone || onnxrt.IsInitialized() {
		initDone = true
		return nil
	}
	path, err := ResolveLibraryPath(libraryPath)
	if err != nil {
		return err
	}
	onnxrt.SetSharedLibraryPath(path)
	if err := onnxrt.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	slog.Debug("ONNX Runtime initialized", "library", path)
	initDone = true
	return nil
}

// Session wraps a single-input single-output float32 model.
type Session struct {
	session *onnxrt.DynamicAdvancedSession
	Input   onnxrt.InputOutputInfo
	Output  onnxrt.InputOutputInfo
	mu      sync.Mutex
}

// NewSession opens modelPath. threads <= 0 keeps the runtime default.
func NewSession(modelPath string, threads int) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s: %w", modelPath, err)
	}
	inputs, outputs, err := onnxrt.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}

	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()
	if threads > 0 {
		if err := opts.SetIntraOpNumThreads(threads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	sess, err := onnxrt.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return &Session{session: sess, Input: inputs[0], Output: outputs[0]}, nil
}

// Run executes the model on t and returns a copy of the output data and its shape.
func (s *Session) Run(t Tensor) ([]float32, []int64, error) {
	if err := VerifyImageTensor(t); err != nil {
		return nil, nil, fmt.Errorf("invalid tensor: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil, errors.New("session is closed")
	}

	in, err := onnxrt.NewTensor(onnxrt.NewShape(t.Shape...), t.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = in.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := s.session.Run([]onnxrt.Value{in}, outputs); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	ft, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("expected float32 output tensor, got %T", outputs[0])
	}
	src := ft.GetData()
	data := make([]float32, len(src))
	copy(data, src)
	shape := ft.GetShape()
	return data, []int64(shape), nil
}

// Close releases the session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
