package tasks

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Task
		wantErr bool
	}{
		{name: "chat", input: "chat", want: TaskChat},
		{name: "vision", input: "vision", want: TaskVision},
		{name: "ocr", input: "ocr", want: TaskOCR},
		{name: "embedding", input: "embedding", want: TaskEmbedding},
		{name: "search", input: "search", want: TaskSearch},
		{name: "tts", input: "tts", want: TaskTTS},
		{name: "image generation", input: "image-generation", want: TaskImageGeneration},
		{name: "unknown task", input: "translation", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "case sensitive", input: "Chat", wantErr: true},
		{name: "whitespace", input: " chat", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %q", tt.input, got)
				}
				var unknownErr *UnknownTaskError
				if !errors.As(err, &unknownErr) {
					t.Errorf("Parse(%q) error type = %T, want *UnknownTaskError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAll(t *testing.T) {
	got := All()
	if len(got) != 7 {
		t.Fatalf("All() returned %d tasks, want 7", len(got))
	}

	// Every returned task must be valid.
	for _, task := range got {
		if !task.Valid() {
			t.Errorf("All() contains invalid task %q", task)
		}
	}

	// Mutating the returned slice must not affect subsequent calls.
	got[0] = Task("mutated")
	if All()[0] != TaskChat {
		t.Error("All() shares its backing array with callers")
	}
}

func TestValid(t *testing.T) {
	if !TaskChat.Valid() {
		t.Error("TaskChat.Valid() = false, want true")
	}
	if Task("nope").Valid() {
		t.Error(`Task("nope").Valid() = true, want false`)
	}
}

func TestUnknownTaskErrorMessage(t *testing.T) {
	_, err := Parse("bogus")
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
	// The message should name the offending value and the known set.
	for _, want := range []string{"bogus", "chat", "image-generation"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}
