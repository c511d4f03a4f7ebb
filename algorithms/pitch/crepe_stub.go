//go:build !tensorflow

package pitch

import "fmt"

func newCREPERunner(modelPath string) (activationRunner, error) {
	return nil, fmt.Errorf("%w: crepe %s: built without tensorflow support", ErrModelUnavailable, modelPath)
}
