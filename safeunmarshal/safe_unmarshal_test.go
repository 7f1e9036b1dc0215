package safeunmarshal

import (
	"strings"
	"testing"
)

func TestToBasicTypes(t *testing.T) {
	type StringWrapper struct {
		Value string `json:"value"`
	}
	type IntWrapper struct {
		Value int `json:"value"`
	}

	got, err := To[StringWrapper]([]byte(`{"value":"hello"}`))
	if err != nil {
		t.Fatalf("To() error = %v", err)
	}
	if got.Value != "hello" {
		t.Errorf("To() = %+v, want value hello", got)
	}

	gotInt, err := To[IntWrapper]([]byte(`{"value":42}`))
	if err != nil {
		t.Fatalf("To() error = %v", err)
	}
	if gotInt.Value != 42 {
		t.Errorf("To() = %+v, want value 42", gotInt)
	}
}

func TestToStructs(t *testing.T) {
	type TestStruct struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	tests := []struct {
		name  string
		input []byte
		want  TestStruct
	}{
		{
			name:  "valid struct",
			input: []byte(`{"name":"John","age":30}`),
			want:  TestStruct{Name: "John", Age: 30},
		},
		{
			name:  "struct with surrounding whitespace",
			input: []byte("  {\"name\":\"Jane\",\"age\":25}  "),
			want:  TestStruct{Name: "Jane", Age: 25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := To[TestStruct](tt.input)
			if err != nil {
				t.Fatalf("To() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("To() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToSlices(t *testing.T) {
	got, err := To[[]int]([]byte(`[1,2,3]`))
	if err != nil {
		t.Fatalf("To() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("To() length = %d, want 3", len(got))
	}
}

func TestToEmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "empty byte slice", input: []byte{}},
		{name: "whitespace only", input: []byte("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := To[string](tt.input); err == nil {
				t.Error("To() expected error for empty input")
			}
		})
	}
}

func TestToMalformedJSONIsRejectedWithoutRepair(t *testing.T) {
	type TestStruct struct {
		Value string `json:"value"`
	}
	if _, err := To[TestStruct]([]byte(`{value: "missing quotes"}`)); err == nil {
		t.Error("To() expected error for malformed JSON, got none")
	}
}

func TestToRejectsOversizedInput(t *testing.T) {
	huge := []byte(strings.Repeat("a", MaxInputSize+1))
	if _, err := To[string](huge); err == nil {
		t.Error("To() expected error for input exceeding MaxInputSize")
	}
}
