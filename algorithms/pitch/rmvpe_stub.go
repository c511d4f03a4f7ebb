//go:build !onnx

package pitch

import "fmt"

func newRMVPERunner(modelPath, _ string) (salienceRunner, error) {
	return nil, fmt.Errorf("%w: rmvpe %s: built without onnx support", ErrModelUnavailable, modelPath)
}
