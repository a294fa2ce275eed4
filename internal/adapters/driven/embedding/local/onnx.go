//go:build cgo

package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

var (
	envOnce sync.Once
	envErr  error

	// chdirMu serialises session creation that switches the working directory.
	chdirMu sync.Mutex
)

var (
	inputNames  = []string{"input_ids", "attention_mask"}
	outputNames = []string{"last_hidden_state"}
)

// initEnvironment loads the shared library once per process.
func initEnvironment() error {
	envOnce.Do(func() {
		if path := libraryPath(); path != "" {
			ort.SetSharedLibraryPath(path)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// onnxRuntime runs models with ONNX Runtime.
type onnxRuntime struct{}

// DefaultRuntime returns the ONNX Runtime backed runtime.
func DefaultRuntime() Runtime {
	return onnxRuntime{}
}

// Open loads the model once. A model that cannot be parsed fails here,
// not on the first Run.
func (onnxRuntime) Open(weightsPath string, dims int) (Session, error) {
	if err := initEnvironment(); err != nil {
		return nil, fmt.Errorf("initialise onnx runtime: %w", err)
	}
	session, err := newDynamicSession(weightsPath)
	if err != nil {
		return nil, err
	}
	return &onnxSession{session: session, dims: dims}, nil
}

// newDynamicSession creates a session whose sequence length may vary per
// Run. The model is loaded from memory, so ONNX Runtime resolves an
// external data file against the working directory; when one is present
// the session is created from inside the model directory.
func newDynamicSession(weightsPath string) (*ort.DynamicAdvancedSession, error) {
	dir := filepath.Dir(weightsPath)
	if _, err := os.Stat(filepath.Join(dir, domain.ModelWeightsDataFile)); err != nil {
		return ort.NewDynamicAdvancedSession(weightsPath, inputNames, outputNames, nil)
	}

	abs, err := filepath.Abs(weightsPath)
	if err != nil {
		return nil, err
	}

	chdirMu.Lock()
	defer chdirMu.Unlock()
	prev, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(filepath.Dir(abs)); err != nil {
		return nil, err
	}
	session, err := ort.NewDynamicAdvancedSession(abs, inputNames, outputNames, nil)
	if cerr := os.Chdir(prev); cerr != nil && err == nil {
		session.Destroy() //nolint:errcheck
		return nil, cerr
	}
	return session, err
}

// onnxSession owns one loaded model. Runs may proceed concurrently; Close
// waits for them.
type onnxSession struct {
	mu      sync.RWMutex
	session *ort.DynamicAdvancedSession
	dims    int
}

var errSessionClosed = errors.New("session closed")

func (s *onnxSession) Run(ids, mask []int64) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, errSessionClosed
	}

	shape := ort.NewShape(1, int64(len(ids)))
	idsTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(ids)), int64(s.dims)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()

	err = s.session.Run(
		[]ort.ArbitraryTensor{idsTensor, maskTensor},
		[]ort.ArbitraryTensor{output},
	)
	if err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	data := output.GetData()
	hidden := make([]float32, len(data))
	copy(hidden, data)
	return hidden, nil
}

// Close destroys the session. It is safe to call more than once.
func (s *onnxSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
