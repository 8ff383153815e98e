package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "usage error",
			code:    "E001",
			wantMsg: "Provide called without an owner",
			wantCat: CategoryUsage,
		},
		{
			name:    "scheduler error",
			code:    "E010",
			wantMsg: "Flush run limit exceeded",
			wantCat: CategoryScheduler,
		},
		{
			name:    "host error",
			code:    "E011",
			wantMsg: "Dispatch queue full",
			wantCat: CategoryHost,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestSpaceError_Error(t *testing.T) {
	base := stderrors.New("no owner")
	err := New("E003").Wrap(base)

	want := "E003: OnCleanup called without an owner: no owner"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !stderrors.Is(err, base) {
		t.Error("errors.Is should reach the wrapped error")
	}

	plain := Newf(CategoryCLI, "bad flag %q", "--x")
	if plain.Error() != `bad flag "--x"` {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestIsUsage(t *testing.T) {
	if !IsUsage(New("E002")) {
		t.Error("E002 should be a usage error")
	}
	if IsUsage(New("E010")) {
		t.Error("E010 should not be a usage error")
	}
	if IsUsage("E001") {
		t.Error("non-error values are never usage errors")
	}
	wrapped := fmt.Errorf("outer: %w", New("E004"))
	if !IsUsage(wrapped) {
		t.Error("wrapped usage errors should be detected")
	}
}

func TestCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", New("E011"))
	if got := Code(err); got != "E011" {
		t.Errorf("Code() = %q, want E011", got)
	}
	if got := Code(stderrors.New("x")); got != "" {
		t.Errorf("Code() = %q, want empty", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E020") != nil {
		t.Error("nil error should stay nil")
	}

	orig := New("E010")
	if FromError(orig, "E020") != orig {
		t.Error("SpaceError should be returned as-is")
	}

	base := stderrors.New("yaml: line 3")
	se := FromError(base, "E020")
	if se.Code != "E020" || se.Wrapped != base {
		t.Errorf("unexpected wrap: %+v", se)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E001").WithOp("Provide").Wrap(stderrors.New("no owner"))
	out := err.Format()

	for _, want := range []string{
		"ERROR E001: Provide called without an owner",
		"op: Provide",
		"cause: no owner",
		"Hint: Call Provide inside Root",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E005").WithOp("CurrentNode")
	want := "CurrentNode: E005: CurrentNode called without an owner"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E020").WithOp("config.Load").Wrap(stderrors.New("bad yaml"))

	var decoded map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &decoded); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if decoded["code"] != "E020" {
		t.Errorf("code = %v", decoded["code"])
	}
	if decoded["category"] != string(CategoryConfig) {
		t.Errorf("category = %v", decoded["category"])
	}
	if decoded["cause"] != "bad yaml" {
		t.Errorf("cause = %v", decoded["cause"])
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, New("E012"))
	if !strings.Contains(buf.String(), "E012: Event loop closed") {
		t.Errorf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, stderrors.New("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("expected registered codes")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
}

func TestRegister(t *testing.T) {
	Register("E999", ErrorTemplate{Category: CategoryRuntime, Message: "custom"})
	defer delete(registry, "E999")

	tmpl, ok := GetTemplate("E999")
	if !ok || tmpl.Message != "custom" {
		t.Errorf("GetTemplate() = %+v, %v", tmpl, ok)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q longer than width", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six" {
		t.Errorf("words lost: %v", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}
