//go:build onnx

package pitch

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initONNXRuntime(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// onnxRunner runs the RMVPE graph. The time axis varies per call, so a
// dynamic session is used and tensors are allocated per run.
type onnxRunner struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

func newRMVPERunner(modelPath, libraryPath string) (salienceRunner, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: rmvpe model %s: %v", ErrModelUnavailable, modelPath, err)
	}
	if err := initONNXRuntime(libraryPath); err != nil {
		return nil, fmt.Errorf("%w: onnxruntime: %v", ErrModelUnavailable, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil || len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: rmvpe model %s has no usable inputs/outputs: %v", ErrModelUnavailable, modelPath, err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: rmvpe session: %v", ErrModelUnavailable, err)
	}

	return &onnxRunner{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}, nil
}

func (o *onnxRunner) Run(input []float32, mels, frames int) ([][]float32, error) {
	in, err := ort.NewTensor(ort.NewShape(1, int64(mels), int64(frames)), input)
	if err != nil {
		return nil, err
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(frames), NumSalienceBins))
	if err != nil {
		return nil, err
	}
	defer out.Destroy()

	if err := o.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, err
	}

	data := out.GetData()
	rows := make([][]float32, frames)
	for t := range rows {
		row := make([]float32, NumSalienceBins)
		copy(row, data[t*NumSalienceBins:(t+1)*NumSalienceBins])
		rows[t] = row
	}
	return rows, nil
}

func (o *onnxRunner) Close() error {
	if o.session == nil {
		return nil
	}
	return o.session.Destroy()
}
