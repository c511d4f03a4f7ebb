//go:build tensorflow

package pitch

import (
	"fmt"
	"os"

	tf "github.com/wamuir/graft/tensorflow"
)

const (
	crepeInputOp  = "serving_default_input"
	crepeOutputOp = "StatefulPartitionedCall"
)

// tfRunner runs a CREPE SavedModel exported with the "serve" tag
type tfRunner struct {
	model *tf.SavedModel
	input tf.Output
	out   tf.Output
}

func newCREPERunner(modelPath string) (activationRunner, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: crepe model %s: %v", ErrModelUnavailable, modelPath, err)
	}

	model, err := tf.LoadSavedModel(modelPath, []string{"serve"}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load SavedModel: %v", ErrModelUnavailable, err)
	}

	inputOp := model.Graph.Operation(crepeInputOp)
	outputOp := model.Graph.Operation(crepeOutputOp)
	if inputOp == nil || outputOp == nil {
		_ = model.Session.Close()
		return nil, fmt.Errorf("%w: crepe graph lacks %q or %q", ErrModelUnavailable, crepeInputOp, crepeOutputOp)
	}

	return &tfRunner{model: model, input: inputOp.Output(0), out: outputOp.Output(0)}, nil
}

func (r *tfRunner) Run(frames [][]float32) ([][]float32, error) {
	tensor, err := tf.NewTensor(frames)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputs, err := r.model.Session.Run(
		map[tf.Output]*tf.Tensor{r.input: tensor},
		[]tf.Output{r.out},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	switch v := outputs[0].Value().(type) {
	case [][]float32:
		return v, nil
	case [][][]float32:
		return v[0], nil
	default:
		return nil, fmt.Errorf("unexpected output type: %T", v)
	}
}

func (r *tfRunner) Close() error {
	if r.model != nil && r.model.Session != nil {
		return r.model.Session.Close()
	}
	return nil
}
