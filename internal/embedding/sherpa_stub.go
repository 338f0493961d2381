//go:build !cgo

// ABOUTME: Fallback for builds without cgo
// ABOUTME: Reports the sherpa-onnx provider as unavailable
package embedding

import "fmt"

// NewSherpaProvider is unavailable without cgo. Builds without a C
// toolchain can still use the openai provider.
func NewSherpaProvider(modelPath string, numThreads int, device string) (Provider, error) {
	return nil, fmt.Errorf("sherpa provider requires cgo (model: %s)", modelPath)
}
