package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Record is implemented by every shape stored in a document.
type Record interface {
	// Key is the record ID, unique within a document.
	Key() string
	// CreatedAt is the merge timestamp; zero when missing or unparseable.
	CreatedAt() time.Time
}

// DecodeFunc parses and normalizes a whole document.
type DecodeFunc[T Record] func(data []byte, now time.Time) ([]T, error)

// DecodeTasks parses a tasks document and normalizes each task.
// An empty or whitespace-only document decodes to an empty set.
func DecodeTasks(data []byte, now time.Time) ([]Task, error) {
	tasks, err := decodeArray[Task](data, "tasks")
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i] = NormalizeTask(tasks[i], now)
	}
	return tasks, nil
}

// DecodeExams parses an exams document and normalizes each exam.
func DecodeExams(data []byte, now time.Time) ([]Exam, error) {
	exams, err := decodeArray[Exam](data, "exams")
	if err != nil {
		return nil, err
	}
	for i := range exams {
		exams[i] = NormalizeExam(exams[i], now)
	}
	return exams, nil
}

// EncodeDocument renders records as a pretty-printed JSON array.
// A nil slice is written as [] so the document stays an array.
func EncodeDocument[T Record](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

func decodeArray[T any](data []byte, name string) ([]T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s document: %w", name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
