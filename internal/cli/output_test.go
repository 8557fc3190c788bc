package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, buf *bytes.Buffer) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	return resp
}

func TestOutputFormatter_JSON(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Success(GenerateReport{Fingerprint: "abc", Files: []GeneratedFile{}}))

		resp := decodeResponse(t, buf)
		assert.Equal(t, "ok", resp.Status)
		assert.Nil(t, resp.Error)
		assert.Equal(t, map[string]any{"fingerprint": "abc", "files": []any{}}, resp.Data)
	})

	t.Run("error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Error(ErrCodeGenerate, "kotlin backend: unknown type", nil))

		resp := decodeResponse(t, buf)
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeGenerate, resp.Error.Code)
		assert.Equal(t, "kotlin backend: unknown type", resp.Error.Message)
		assert.Nil(t, resp.Error.Details)
	})

	t.Run("error_with_details", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		details := map[string]any{"file": "search.cue", "line": 4}
		require.NoError(t, f.Error("E006", "building CUE value", details))

		resp := decodeResponse(t, buf)
		require.NotNil(t, resp.Error)
		assert.Equal(t, map[string]any{"file": "search.cue", "line": float64(4)}, resp.Error.Details)
	})

	t.Run("indented", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, f.Success(map[string]int{"records": 3}))
		assert.Contains(t, buf.String(), "\n  \"data\": {\n    \"records\": 3\n  }")
	})
}

func TestOutputFormatter_Text(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		write   func(f *OutputFormatter) error
		want    []string
		absent  []string
	}{
		{
			name:  "success",
			write: func(f *OutputFormatter) error { return f.Success("Document valid") },
			want:  []string{"Document valid\n"},
		},
		{
			name:   "error",
			write:  func(f *OutputFormatter) error { return f.Error("E300", "generation failed", "go") },
			want:   []string{"✗ Error [E300]: generation failed"},
			absent: []string{"Details:"},
		},
		{
			name:    "error_verbose",
			verbose: true,
			write:   func(f *OutputFormatter) error { return f.Error("E300", "generation failed", "go") },
			want:    []string{"Error [E300]", "Details: go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}
			require.NoError(t, tt.write(f))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, buf.String(), a)
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	quiet := &bytes.Buffer{}
	(&OutputFormatter{Format: "text", Writer: quiet}).VerboseLog("Generating %s", "dart")
	assert.Empty(t, quiet.String())

	loud := &bytes.Buffer{}
	(&OutputFormatter{Format: "text", Writer: loud, Verbose: true}).VerboseLog("Generating %s", "dart")
	assert.Equal(t, "Generating dart\n", loud.String())
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    buf,
		ErrWriter: errBuf,
		Verbose:   true,
	}

	formatter.VerboseLog("Generating %s", "go")
	assert.Empty(t, buf.String())
	assert.Contains(t, errBuf.String(), "Generating go")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Fail(ExitCommandError, ErrCodeStore, "ledger not found", nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "E400: ledger not found", err.Error())
	assert.Contains(t, buf.String(), "Error [E400]: ledger not found")
}

func TestOutputFormatter_LineIsTextOnly(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}
	formatter.Line("hello %d", 1)
	assert.Empty(t, buf.String())

	formatter.Format = "text"
	formatter.Line("hello %d", 1)
	assert.Equal(t, "hello 1\n", buf.String())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit_error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped", fmt.Errorf("run: %w", NewExitError(ExitFailure, "stale")), ExitFailure},
		{"plain", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestWrapExitError(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "write failed", inner)
	assert.Equal(t, "write failed: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
}
