package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Encoder turns text into model input ids and an attention mask.
type Encoder interface {
	Encode(text string) (ids, mask []int64, err error)
}

// TokenizerLoader loads the encoder of a model from its tokenizer file.
type TokenizerLoader func(path string, maxTokens int) (Encoder, error)

// hfTokenizer encodes with a Hugging Face tokenizer.json.
type hfTokenizer struct {
	tk *tokenizer.Tokenizer
}

// LoadTokenizer reads tokenizer.json and truncates encodings to maxTokens,
// special tokens included. The file's own truncation and padding settings
// are ignored: inputs are always a single unpadded sequence.
func LoadTokenizer(path string, maxTokens int) (enc Encoder, err error) {
	// The pretrained builders type-assert on the JSON and panic on
	// shapes they do not expect.
	defer func() {
		if r := recover(); r != nil {
			enc, err = nil, fmt.Errorf("read tokenizer %s: %v", path, r)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}
	var cfg tokenizer.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse tokenizer %s: %w", path, err)
	}

	tk, err := buildTokenizer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("build tokenizer %s: %w", path, err)
	}
	if maxTokens > 0 {
		// OnlyFirst: there is never a pair sequence, and LongestFirst
		// dereferences the missing pair encoding.
		tk.WithTruncation(&tokenizer.TruncationParams{
			MaxLength: maxTokens,
			Strategy:  tokenizer.OnlyFirst,
		})
	}
	return &hfTokenizer{tk: tk}, nil
}

// buildTokenizer assembles the pipeline described by cfg. Unigram models,
// which E5 multilingual tokenizers use, are built here because the
// pretrained package does not implement them.
func buildTokenizer(cfg *tokenizer.Config) (*tokenizer.Tokenizer, error) {
	var (
		model tokenizer.Model
		err   error
	)
	if typ, _ := cfg.Model["type"].(string); typ == "Unigram" {
		model, err = newUnigram(cfg.Model)
	} else {
		model, err = pretrained.CreateModel(cfg)
	}
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, errors.New("no model section")
	}
	tk := tokenizer.NewTokenizer(model)

	norm, err := pretrained.CreateNormalizer(cfg.Normalizer)
	if err != nil {
		return nil, err
	}
	tk.WithNormalizer(norm)

	preTok, err := pretrained.CreatePreTokenizer(metaspaceCompat(cfg.PreTokenizer))
	if err != nil {
		return nil, err
	}
	tk.WithPreTokenizer(preTok)

	post, err := pretrained.CreatePostProcessor(cfg.PostProcessor)
	if err != nil {
		return nil, err
	}
	tk.WithPostProcessor(post)

	dec, err := pretrained.CreateDecoder(cfg.Decoder)
	if err != nil {
		return nil, err
	}
	tk.WithDecoder(dec)

	special, added := pretrained.CreateAddedTokens(cfg.AddedTokens)
	if len(special) > 0 {
		tk.AddSpecialTokens(special)
	}
	if len(added) > 0 {
		tk.AddTokens(added)
	}
	return tk, nil
}

// metaspaceCompat maps the newer "prepend_scheme" field of Metaspace
// pre-tokenizers onto the "add_prefix_space" flag the builder reads.
func metaspaceCompat(cfg map[string]any) map[string]any {
	if cfg == nil {
		return nil
	}
	switch cfg["type"] {
	case "Metaspace":
		if _, ok := cfg["add_prefix_space"]; !ok {
			scheme, _ := cfg["prepend_scheme"].(string)
			cfg["add_prefix_space"] = scheme == "always" || scheme == "first"
		}
	case "Sequence":
		subs, _ := cfg["pretokenizers"].([]any)
		for _, sub := range subs {
			if m, ok := sub.(map[string]any); ok {
				metaspaceCompat(m)
			}
		}
	}
	return cfg
}

// Encode tokenizes text with special tokens added.
func (t *hfTokenizer) Encode(text string) ([]int64, []int64, error) {
	enc, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int64, len(enc.Ids))
	for i, id := range enc.Ids {
		ids[i] = int64(id)
	}
	mask := make([]int64, len(enc.AttentionMask))
	for i, m := range enc.AttentionMask {
		mask[i] = int64(m)
	}
	return ids, mask, nil
}
