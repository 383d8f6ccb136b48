package completion

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileShim is an offline implementation that answers every prompt with the
// contents of a file. It remembers the prompts it was given.
type FileShim struct {
	filePath string
	mu       sync.RWMutex
	prompts  []Prompt
}

// Ensure FileShim implements Client.
var _ Client = (*FileShim)(nil)

// NewFileShim creates a shim answering from filePath.
func NewFileShim(filePath string) *FileShim {
	return &FileShim{filePath: filePath}
}

// Complete returns the file's current contents. The file is re-read on every call.
func (f *FileShim) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return "", fmt.Errorf("reading completion file: %w", err)
	}

	log.Debug().Str("file", f.filePath).Int("bytes", len(data)).Msg("completion answered from file")
	return string(data), nil
}

// Prompts returns the prompts received so far.
func (f *FileShim) Prompts() []Prompt {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Prompt, len(f.prompts))
	copy(out, f.prompts)
	return out
}

// Static answers every prompt with a fixed string.
type Static string

// Complete returns s.
func (s Static) Complete(ctx context.Context, _ Prompt) (string, error) {
	return string(s), ctx.Err()
}
