package classifier

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

//initORT initializes the ONNX Runtime environment once per process
func initORT(sharedLibrary string) error {
	ortEnvOnce.Do(func() {
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

//runner runs one image model: every input is a 1x3xSxS float tensor, the output are the class logits
type runner interface {
	Run(ctx context.Context, inputs ...[]float32) ([]float32, error)
	Close() error
}

type onnxSession struct {
	session  *ort.DynamicAdvancedSession
	mu       sync.Mutex
	closed   bool
	inputs   int
	cropSize int64
}

func newOnnxSession(modelPath, sharedLibrary string, inputNames []string, cropSize int) (*onnxSession, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(sharedLibrary); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{"logits"}, options)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &onnxSession{session: session, inputs: len(inputNames), cropSize: int64(cropSize)}, nil
}

func (s *onnxSession) Run(ctx context.Context, inputs ...[]float32) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(inputs) != s.inputs {
		return nil, fmt.Errorf("expected %d inputs, got %d", s.inputs, len(inputs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}

	values := make([]ort.Value, 0, len(inputs))
	for _, data := range inputs {
		tensor, err := ort.NewTensor(ort.NewShape(1, 3, s.cropSize, s.cropSize), data)
		if err != nil {
			return nil, fmt.Errorf("creating input tensor: %w", err)
		}
		defer func() { _ = tensor.Destroy() }()
		values = append(values, tensor)
	}

	outputs := []ort.Value{nil}
	if err := s.session.Run(values, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	data := logitsTensor.GetData()
	logits := make([]float32, len(data))
	copy(logits, data)
	return logits, nil
}

func (s *onnxSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.session.Destroy()
}
