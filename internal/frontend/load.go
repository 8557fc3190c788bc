package frontend

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// Load error codes, shared by every CLI command that reads an input
// directory.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeScanError   = "E002" // directory scan error
	ErrCodeNoFiles     = "E003" // no input files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeDecode      = "E008" // JSON document rejected
)

// LoadError is an error that occurred while loading an input directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult is the outcome of loading an input directory.
type LoadResult struct {
	Document  *ir.Document
	CUEFiles  []string
	JSONFiles []string
}

// Load reads every CUE file of dir as one package, then every JSON
// description in lexical order, and merges them into one Document. The
// result is not validated.
func Load(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("input directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing input directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, jsonFiles, err := FindInputFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 && len(jsonFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE or %s files found in %s", JSONSuffix, dir)}
	}

	result := &LoadResult{CUEFiles: cueFiles, JSONFiles: jsonFiles}
	var docs []*ir.Document

	if len(cueFiles) > 0 {
		doc, err := loadCUE(dir)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	for _, path := range jsonFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: err.Error()}
		}
		doc, err := DecodeJSON(data)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("%s: %v", path, err)}
		}
		docs = append(docs, doc)
	}

	result.Document = Merge(docs...)
	return result, nil
}

func loadCUE(dir string) (*ir.Document, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	doc, err := Compile(value)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			return nil, &LoadError{Code: ErrCodeBuildFailed, Message: ce.Field + ": " + ce.Message, Pos: ce.Pos}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	return doc, nil
}

// FindInputFiles returns the .cue files directly in dir and the JSON
// descriptions below it, both sorted.
func FindInputFiles(dir string) (cueFiles, jsonFiles []string, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case strings.HasSuffix(path, JSONSuffix):
			jsonFiles = append(jsonFiles, path)
		case filepath.Ext(path) == ".cue" && filepath.Dir(path) == filepath.Clean(dir):
			cueFiles = append(cueFiles, path)
		}
		return nil
	})
	sort.Strings(cueFiles)
	sort.Strings(jsonFiles)
	return cueFiles, jsonFiles, err
}
