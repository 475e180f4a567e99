// Package tasks defines the closed set of task types the relay can route.
//
// A Task is an abstract capability requested by a caller (chat completion,
// vision, OCR, ...). The set is fixed at compile time: configuration that
// references a task outside this set fails validation at startup rather
// than surfacing as a routing error at request time.
package tasks

import (
	"fmt"
	"strings"
)

// Task identifies one abstract capability served by one or more back-ends.
type Task string

// The complete set of routable tasks.
const (
	// TaskChat is text chat completion.
	TaskChat Task = "chat"

	// TaskVision is image understanding (chat with image input).
	TaskVision Task = "vision"

	// TaskOCR is optical character recognition on an uploaded image.
	TaskOCR Task = "ocr"

	// TaskEmbedding is text embedding generation.
	TaskEmbedding Task = "embedding"

	// TaskSearch is web search.
	TaskSearch Task = "search"

	// TaskTTS is text-to-speech synthesis.
	TaskTTS Task = "tts"

	// TaskImageGeneration is text-to-image generation.
	TaskImageGeneration Task = "image-generation"
)

// all lists every task in declaration order.
var all = []Task{
	TaskChat,
	TaskVision,
	TaskOCR,
	TaskEmbedding,
	TaskSearch,
	TaskTTS,
	TaskImageGeneration,
}

// UnknownTaskError is returned when a string does not name a member of the
// task set.
type UnknownTaskError struct {
	// Value is the string that failed to parse.
	Value string
}

// Error implements the error interface.
func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q (known tasks: %s)", e.Value, listTasks())
}

// All returns every defined task in declaration order.
// The returned slice is a copy and safe to modify.
func All() []Task {
	out := make([]Task, len(all))
	copy(out, all)
	return out
}

// Parse converts a string to a Task.
// It returns an UnknownTaskError for strings outside the closed set.
func Parse(s string) (Task, error) {
	t := Task(s)
	if !t.Valid() {
		return "", &UnknownTaskError{Value: s}
	}
	return t, nil
}

// Valid reports whether t is a member of the closed task set.
func (t Task) Valid() bool {
	for _, known := range all {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the task identifier.
func (t Task) String() string {
	return string(t)
}

// listTasks renders the known task names for error messages.
func listTasks() string {
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
