package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	log "log/slog"
)

// Result is the outcome of a successful invocation. Output goes back to the
// model; Speech, when set, is said to the user.
type Result struct {
	Output string
	Speech string
}

// Say builds a result whose output and speech are the same sentence.
func Say(text string) Result {
	return Result{Output: text, Speech: text}
}

type Executable func(ctx context.Context, args Args) (Result, error)

type entry struct {
	desc Descriptor
	exec Executable
}

// Registry maps tool names to descriptors and executables. It is filled at
// startup and sealed before the first command is served.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	tools  map[string]entry
	sealed bool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

func (r *Registry) Register(desc Descriptor, exec Executable) error {
	if exec == nil {
		return fmt.Errorf("tool %s: nil executable", desc.Name)
	}
	if err := desc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register %s: %w", desc.Name, ErrSealed)
	}
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("tool %s already registered", desc.Name)
	}

	r.tools[desc.Name] = entry{desc: desc, exec: exec}
	r.order = append(r.order, desc.Name)

	return nil
}

func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *Registry) Lookup(name string) (Executable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return e.exec, nil
}

// Descriptors returns the schemas in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].desc)
	}
	return out
}

// Invoke validates args against the descriptor and runs the tool. A panic in
// the tool is reported as an internal failure.
func (r *Registry) Invoke(ctx context.Context, name string, args Args) (res Result, err error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, &UnknownToolError{Name: name}
	}

	if args == nil {
		args = Args{}
	}
	if err := e.desc.check(args); err != nil {
		return Result{}, Fail(KindInvalidArgument,
			"Sorry, that request was missing some details.",
			fmt.Sprintf("Invalid arguments for %s.", name), err)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("Tool panicked", "tool", name, "panic", p, "stack", string(debug.Stack()))
			err = Internal("Sorry, something went wrong with that.",
				fmt.Sprintf("The %s tool crashed.", name), fmt.Errorf("panic: %v", p))
		}
	}()

	log.Debug("Invoking tool", "tool", name, "args", args.JSON())

	return e.exec(ctx, args)
}
