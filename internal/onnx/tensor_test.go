package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageTensor(t *testing.T) {
	ten, err := NewImageTensor(make([]float32, 3*4*5), 3, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 5}, ten.Shape)
	require.NoError(t, VerifyImageTensor(ten))

	_, err = NewImageTensor(nil, 3, 4, 5)
	require.Error(t, err)
	_, err = NewImageTensor(make([]float32, 10), 3, 4, 5)
	require.Error(t, err)
}

func TestVerifyImageTensor(t *testing.T) {
	require.Error(t, VerifyImageTensor(Tensor{Data: make([]float32, 4), Shape: []int64{2, 2}}))
	require.Error(t, VerifyImageTensor(Tensor{Data: nil, Shape: []int64{1, 3, 0, 4}}))
	require.Error(t, VerifyImageTensor(Tensor{Data: make([]float32, 5), Shape: []int64{1, 1, 2, 2}}))
}

func TestLibraryName(t *testing.T) {
	name, err := libraryName("linux")
	require.NoError(t, err)
	assert.Equal(t, "libonnxruntime.so", name)
	_, err = libraryName("plan9")
	require.Error(t, err)
}

func TestResolveLibraryPathExplicit(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "libonnxruntime.so")
	require.NoError(t, os.WriteFile(lib, []byte{}, 0o600))

	got, err := ResolveLibraryPath(lib)
	require.NoError(t, err)
	assert.Equal(t, lib, got)

	_, err = ResolveLibraryPath(filepath.Join(dir, "nope.so"))
	require.Error(t, err)
}

func TestResolveLibraryPathFromEnv(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "custom.so")
	require.NoError(t, os.WriteFile(lib, []byte{}, 0o600))
	t.Setenv("ONNXRUNTIME_LIB", lib)

	got, err := ResolveLibraryPath("")
	require.NoError(t, err)
	assert.Equal(t, lib, got)
}

func TestNewSessionMissingModel(t *testing.T) {
	_, err := NewSession(filepath.Join(t.TempDir(), "det.onnx"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file not found")
}
