package domain

import (
	"fmt"
	"sort"
)

// Artifact file names inside a local model directory.
const (
	ModelWeightsFile   = "model.onnx"
	ModelTokenizerFile = "tokenizer.json"

	// ModelWeightsDataFile holds the tensors of models exported with
	// external data. ONNX Runtime resolves it next to ModelWeightsFile.
	ModelWeightsDataFile = "model.onnx_data"
)

// ModelArtifact is one file a local embedding model needs on disk.
type ModelArtifact struct {
	// FileName is the name inside the model's storage directory.
	FileName string

	// RemotePath is the path of the file inside the source repository.
	RemotePath string

	// Size is the expected size in bytes. Zero disables the size check.
	Size int64
}

// EmbeddingModelDescriptor describes a local embedding model in the catalog.
// Descriptors are immutable and looked up by ID.
type EmbeddingModelDescriptor struct {
	// ID is the catalog key.
	ID string

	// DisplayName is the human-readable name.
	DisplayName string

	// Dimensions is the output vector length.
	Dimensions int

	// Artifacts are the files required on disk, weights first.
	Artifacts []ModelArtifact

	// SourceRepo is the repository the artifacts are fetched from.
	SourceRepo string

	// Languages lists the supported languages ("multilingual" for 100+).
	Languages []string

	// Quality is a coarse retrieval quality tier: "good", "better", "best".
	Quality string

	// ApproxSizeMB is the approximate download size.
	ApproxSizeMB int

	// MaxTokens is the maximum input sequence length.
	MaxTokens int

	// IsInstruct marks instruction-tuned models that take a task prompt on queries.
	IsInstruct bool

	// DefaultTaskInstruction is the task used for instruct query prefixes.
	DefaultTaskInstruction string
}

// RequiredFiles returns the artifact file names in catalog order.
func (d EmbeddingModelDescriptor) RequiredFiles() []string {
	files := make([]string, len(d.Artifacts))
	for i, a := range d.Artifacts {
		files[i] = a.FileName
	}
	return files
}

// DefaultLocalModelID is the catalog entry used when no model is configured.
const DefaultLocalModelID = "multilingual-e5-small"

const defaultInstructTask = "Given a web search query, retrieve relevant passages that answer the query"

func e5Artifacts() []ModelArtifact {
	return []ModelArtifact{
		{FileName: ModelWeightsFile, RemotePath: "onnx/model.onnx"},
		{FileName: ModelTokenizerFile, RemotePath: "tokenizer.json"},
	}
}

// e5ExternalDataArtifacts is for exports above the 2 GB protobuf limit,
// whose weights live in a separate data file.
func e5ExternalDataArtifacts() []ModelArtifact {
	return []ModelArtifact{
		{FileName: ModelWeightsFile, RemotePath: "onnx/model.onnx"},
		{FileName: ModelWeightsDataFile, RemotePath: "onnx/model.onnx_data"},
		{FileName: ModelTokenizerFile, RemotePath: "tokenizer.json"},
	}
}

var modelCatalog = map[string]EmbeddingModelDescriptor{
	"multilingual-e5-small": {
		ID:           "multilingual-e5-small",
		DisplayName:  "Multilingual E5 Small",
		Dimensions:   384,
		Artifacts:    e5Artifacts(),
		SourceRepo:   "intfloat/multilingual-e5-small",
		Languages:    []string{"multilingual"},
		Quality:      "good",
		ApproxSizeMB: 470,
		MaxTokens:    512,
	},
	"multilingual-e5-base": {
		ID:           "multilingual-e5-base",
		DisplayName:  "Multilingual E5 Base",
		Dimensions:   768,
		Artifacts:    e5Artifacts(),
		SourceRepo:   "intfloat/multilingual-e5-base",
		Languages:    []string{"multilingual"},
		Quality:      "better",
		ApproxSizeMB: 1110,
		MaxTokens:    512,
	},
	"multilingual-e5-large": {
		ID:           "multilingual-e5-large",
		DisplayName:  "Multilingual E5 Large",
		Dimensions:   1024,
		Artifacts:    e5ExternalDataArtifacts(),
		SourceRepo:   "intfloat/multilingual-e5-large",
		Languages:    []string{"multilingual"},
		Quality:      "best",
		ApproxSizeMB: 2240,
		MaxTokens:    512,
	},
	"multilingual-e5-large-instruct": {
		ID:                     "multilingual-e5-large-instruct",
		DisplayName:            "Multilingual E5 Large Instruct",
		Dimensions:             1024,
		Artifacts:              e5ExternalDataArtifacts(),
		SourceRepo:             "intfloat/multilingual-e5-large-instruct",
		Languages:              []string{"multilingual"},
		Quality:                "best",
		ApproxSizeMB:           2240,
		MaxTokens:              512,
		IsInstruct:             true,
		DefaultTaskInstruction: defaultInstructTask,
	},
}

// LookupModel returns the catalog descriptor for id.
func LookupModel(id string) (EmbeddingModelDescriptor, error) {
	d, ok := modelCatalog[id]
	if !ok {
		return EmbeddingModelDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	d.Artifacts = append([]ModelArtifact(nil), d.Artifacts...)
	d.Languages = append([]string(nil), d.Languages...)
	return d, nil
}

// IsKnownModel returns true if id is in the catalog.
func IsKnownModel(id string) bool {
	_, ok := modelCatalog[id]
	return ok
}

// AllModels returns every catalog entry ordered by dimensions, then ID.
func AllModels() []EmbeddingModelDescriptor {
	models := make([]EmbeddingModelDescriptor, 0, len(modelCatalog))
	for id := range modelCatalog {
		d, _ := LookupModel(id)
		models = append(models, d)
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].Dimensions != models[j].Dimensions {
			return models[i].Dimensions < models[j].Dimensions
		}
		return models[i].ID < models[j].ID
	})
	return models
}
