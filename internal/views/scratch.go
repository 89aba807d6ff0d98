package views

import (
	"sync"

	"github.com/ashureev/prompt-forge/internal/domain"
)

// Prompt builder steps.
const (
	stepDescribe = 1
	stepRefine   = 2
	stepResult   = 3
)

// ChatScratch holds chat view inputs.
type ChatScratch struct {
	Input string
}

// BuilderScratch holds the prompt builder wizard.
type BuilderScratch struct {
	Step        int
	Description string
	Ideas       domain.PromptIdeas
	FinalPrompt string
}

// CodeScratch holds the code builder editor and its last result.
type CodeScratch struct {
	Tab       string
	Prompt    string
	Language  string
	Generated string
}

// GeneratorScratch holds the freeform generator form and its response.
type GeneratorScratch struct {
	Prompt   string
	Persona  string
	Tone     string
	Response string
}

// Scratch is the per-view working state that is never persisted. It belongs
// to one view and is discarded as soon as the device shows another.
type Scratch struct {
	View      domain.View
	Chat      ChatScratch
	Builder   BuilderScratch
	Code      CodeScratch
	Generator GeneratorScratch
}

func newScratch(v domain.View) Scratch {
	return Scratch{
		View:    v,
		Builder: BuilderScratch{Step: stepDescribe},
		Code:    CodeScratch{Tab: domain.TabFullApp, Language: domain.CodeTargets[0]},
		Generator: GeneratorScratch{
			Persona: domain.GeneratorPersonas[0],
			Tone:    domain.GeneratorTones[0],
		},
	}
}

type scratchPads struct {
	mu   sync.Mutex
	pads map[string]*Scratch
}

func newScratchPads() *scratchPads {
	return &scratchPads{pads: make(map[string]*Scratch)}
}

// Update runs fn on the device's pad for view v, resetting it first if the
// pad belonged to a different view. It returns a copy of the result.
func (p *scratchPads) Update(deviceID string, v domain.View, fn func(s *Scratch)) Scratch {
	p.mu.Lock()
	defer p.mu.Unlock()

	pad, ok := p.pads[deviceID]
	if !ok || pad.View != v {
		fresh := newScratch(v)
		pad = &fresh
		p.pads[deviceID] = pad
	}
	if fn != nil {
		fn(pad)
	}
	out := *pad
	out.Builder.Ideas.Features = append([]string(nil), pad.Builder.Ideas.Features...)
	return out
}

// Apply runs fn only if the device's pad still belongs to view v. Results of
// slow requests are dropped when the device has moved on.
func (p *scratchPads) Apply(deviceID string, v domain.View, fn func(s *Scratch)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	pad, ok := p.pads[deviceID]
	if !ok || pad.View != v {
		return false
	}
	fn(pad)
	return true
}

// Get returns the device's pad for view v.
func (p *scratchPads) Get(deviceID string, v domain.View) Scratch {
	return p.Update(deviceID, v, nil)
}

// Forget drops the device's pad.
func (p *scratchPads) Forget(deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pads, deviceID)
}
