package prompts

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[PromptName]Template{}
)

// Register stores t under its name; a later registration replaces an earlier one.
func Register(t Template) {
	registryMu.Lock()
	registry[t.Name] = t
	registryMu.Unlock()
}

// RegisterSpec compiles and registers s. It panics on a malformed spec, which is a programming error.
func RegisterSpec(s Spec) {
	t, err := MakeTemplate(s)
	if err != nil {
		panic(err)
	}
	Register(t)
}

// Build renders the named prompt for in.
func Build(name PromptName, in Input) (Prompt, error) {
	registryMu.RLock()
	t, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", name)
	}
	return t.Render(in)
}

// Names lists registered prompts in sorted order.
func Names() []PromptName {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]PromptName, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
