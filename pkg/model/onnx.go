/*
Copyright 2025 The ScanWrite Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"context"
	"fmt"
	"math"
	"sync"

	onnxruntime "github.com/yalue/onnxruntime_go"
)

// ONNXOracleConfig holds the configuration for the ONNXOracle.
type ONNXOracleConfig struct {
	// ModelPath is the path to the exported ONNX language model.
	ModelPath string `json:"modelPath"`
}

// DefaultONNXOracleConfig returns a default configuration for the ONNXOracle.
func DefaultONNXOracleConfig() *ONNXOracleConfig {
	return &ONNXOracleConfig{}
}

// ortInitOnce guards process-wide ONNX Runtime environment initialization.
var ortInitOnce sync.Once

// ONNXOracle implements the Oracle interface by running an exported causal
// language model through ONNX Runtime. The model is expected to take a
// single int64 token-ID tensor of shape [1, seqLen] and produce logits of
// shape [1, seqLen, vocabSize]; the distribution for the next token is the
// softmax of the last position's logits.
type ONNXOracle struct {
	mu          sync.Mutex // ONNX sessions are not safe for concurrent Run
	session     *onnxruntime.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

var _ Oracle = &ONNXOracle{}

// NewONNXOracle creates a new ONNXOracle instance from a model file.
func NewONNXOracle(config *ONNXOracleConfig) (*ONNXOracle, error) {
	if config == nil {
		config = DefaultONNXOracleConfig()
	}
	if config.ModelPath == "" {
		return nil, fmt.Errorf("no ONNX model path configured")
	}

	var initErr error
	ortInitOnce.Do(func() {
		initErr = onnxruntime.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", initErr)
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		_ = options.Destroy()
	}()

	inputs, outputs, err := onnxruntime.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}

	inputNames := make([]string, len(inputs))
	for i, input := range inputs {
		inputNames[i] = input.Name
	}
	outputNames := make([]string, len(outputs))
	for i, output := range outputs {
		outputNames[i] = output.Name
	}

	session, err := onnxruntime.NewDynamicAdvancedSession(config.ModelPath,
		inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXOracle{
		session:     session,
		inputNames:  inputNames,
		outputNames: outputNames,
	}, nil
}

// Predict runs the model on the token sequence and returns the probability
// distribution over the next token.
func (o *ONNXOracle) Predict(ctx context.Context, tokens []uint32) ([]float64, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens provided for inference")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]int64, len(tokens))
	for i, tok := range tokens {
		ids[i] = int64(tok)
	}

	if len(o.inputNames) > 2 {
		return nil, fmt.Errorf("model expects %d inputs, at most token IDs and an attention mask are supported", len(o.inputNames))
	}

	inputTensor, err := onnxruntime.NewTensor(
		onnxruntime.NewShape(1, int64(len(ids))), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() {
		_ = inputTensor.Destroy()
	}()

	inputValues := make([]onnxruntime.Value, len(o.inputNames))
	inputValues[0] = inputTensor

	// Exported causal LMs commonly take an attention mask alongside the
	// token IDs. All positions attend.
	if len(o.inputNames) == 2 {
		mask := make([]int64, len(ids))
		for i := range mask {
			mask[i] = 1
		}
		maskTensor, err := onnxruntime.NewTensor(
			onnxruntime.NewShape(1, int64(len(mask))), mask)
		if err != nil {
			return nil, fmt.Errorf("failed to create attention mask tensor: %w", err)
		}
		defer func() {
			_ = maskTensor.Destroy()
		}()
		inputValues[1] = maskTensor
	}

	outputValues := make([]onnxruntime.Value, len(o.outputNames))
	defer func() {
		for _, value := range outputValues {
			if value != nil {
				_ = value.Destroy()
			}
		}
	}()

	o.mu.Lock()
	err = o.session.Run(inputValues, outputValues)
	o.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	logitsTensor, ok := outputValues[0].(*onnxruntime.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unsupported output type %T", outputValues[0])
	}

	logits := logitsTensor.GetData()
	shape := logitsTensor.GetShape()
	vocabSize := int(shape[len(shape)-1])
	if vocabSize <= 0 || len(logits) < vocabSize {
		return nil, fmt.Errorf("malformed logits shape %v", shape)
	}

	// Distribution at the last sequence position.
	return softmax(logits[len(logits)-vocabSize:]), nil
}

// Close releases the ONNX session resources.
func (o *ONNXOracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != nil {
		err := o.session.Destroy()
		o.session = nil
		if err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}
	return nil
}

// softmax converts logits to probabilities, max-subtracted for numerical
// stability.
func softmax(logits []float32) []float64 {
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	return probs
}
