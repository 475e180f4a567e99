// Package capability maps task types to the back-ends able to serve them.
//
// The registry is built once at startup and never mutated afterwards, so
// reads need no locking. Order within a task's back-end list expresses
// declared preference; the provider manager uses it as the tie-breaker
// after capacity.
package capability

import (
	"fmt"
	"sort"

	"baatcheet/relay/pkg/tasks"
)

// BackendRef is one back-end's entry in a task's capability list.
type BackendRef struct {
	// Name is the back-end's name.
	Name string `json:"name"`

	// Priority is the back-end's position in the task's declared order,
	// starting at 0. Lower is preferred.
	Priority int `json:"priority"`
}

// Registry is the static task→back-ends capability table.
type Registry struct {
	table map[tasks.Task][]BackendRef
}

// New builds a registry from ordered back-end name lists per task.
//
// known, when non-nil, is the set of configured back-end names; every
// referenced back-end must be a member. All problems are collected into a
// single ValidationError.
func New(table map[tasks.Task][]string, known map[string]bool) (*Registry, error) {
	var errs []FieldError

	built := make(map[tasks.Task][]BackendRef, len(table))
	for task, names := range table {
		field := fmt.Sprintf("capabilities.%s", task)

		if !task.Valid() {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("unknown task type %q", string(task)),
			})
			continue
		}
		if len(names) == 0 {
			errs = append(errs, FieldError{
				Field:   field,
				Message: "must list at least one back-end",
			})
			continue
		}

		seen := make(map[string]bool, len(names))
		refs := make([]BackendRef, 0, len(names))
		for i, name := range names {
			entry := fmt.Sprintf("%s[%d]", field, i)
			if name == "" {
				errs = append(errs, FieldError{Field: entry, Message: "back-end name is empty"})
				continue
			}
			if seen[name] {
				errs = append(errs, FieldError{
					Field:   entry,
					Message: fmt.Sprintf("back-end %q listed twice", name),
				})
				continue
			}
			if known != nil && !known[name] {
				errs = append(errs, FieldError{
					Field:   entry,
					Message: fmt.Sprintf("back-end %q is not configured", name),
				})
				continue
			}
			seen[name] = true
			refs = append(refs, BackendRef{Name: name, Priority: i})
		}
		built[task] = refs
	}

	if len(errs) > 0 {
		return nil, ValidationError{Errors: errs}
	}
	return &Registry{table: built}, nil
}

// Default returns the built-in capability table. Callers that configure
// their own table in YAML never see it.
func Default() *Registry {
	r, err := New(map[tasks.Task][]string{
		tasks.TaskChat:            {"groq", "gemini", "deepseek", "openrouter"},
		tasks.TaskVision:          {"gemini", "groq", "openrouter"},
		tasks.TaskOCR:             {"ocrspace", "gemini"},
		tasks.TaskEmbedding:       {"gemini", "huggingface"},
		tasks.TaskSearch:          {"brave", "serpapi"},
		tasks.TaskTTS:             {"elevenlabs", "huggingface"},
		tasks.TaskImageGeneration: {"huggingface", "gemini"},
	}, nil)
	if err != nil {
		// The built-in table is statically correct; reaching this is a bug.
		panic(err)
	}
	return r
}

// BackendsFor returns the back-ends able to serve task, in priority order.
// The slice is a copy; mutating it does not affect the registry.
func (r *Registry) BackendsFor(task tasks.Task) []BackendRef {
	refs, ok := r.table[task]
	if !ok {
		return nil
	}
	out := make([]BackendRef, len(refs))
	copy(out, refs)
	return out
}

// Supports reports whether backend is declared capable of task.
func (r *Registry) Supports(task tasks.Task, backend string) bool {
	for _, ref := range r.table[task] {
		if ref.Name == backend {
			return true
		}
	}
	return false
}

// Tasks returns the tasks the registry has entries for, sorted by name.
func (r *Registry) Tasks() []tasks.Task {
	out := make([]tasks.Task, 0, len(r.table))
	for task := range r.table {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
