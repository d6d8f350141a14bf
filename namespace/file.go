package namespace

import (
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

// A namespace file lists words to define, in order. Later words may use
// earlier ones.
//
//	[[word]]
//	name = "double"
//	body = "2 mul"
//	doc = "Doubles a number."
//	input = ["number"]
//	output = ["number"]
type namespaceFile struct {
	Words []Word `toml:"word"`
}

// Word is one entry of a namespace file.
type Word struct {
	Name   string   `toml:"name"`
	Body   string   `toml:"body"`
	Doc    string   `toml:"doc"`
	Input  []string `toml:"input"`
	Output []string `toml:"output"`
}

// fileSchema constrains the decoded TOML document. Definitions are
// closed, so unknown keys are rejected.
const fileSchema = `
#Kind: "number" | "boolean" | "string"

#Word: {
	name:    string & !=""
	body:    string
	doc?:    string
	input?:  [...#Kind]
	output?: [...#Kind]
}

#File: {
	word?: [...#Word]
}
`

var (
	schemaMu sync.Mutex // cue values are not safe for concurrent use
	schema   cue.Value
)

func init() {
	ctx := cuecontext.New()
	v := ctx.CompileString(fileSchema)
	if err := v.Err(); err != nil {
		panic(fmt.Sprintf("namespace: compiling file schema: %v", err))
	}
	schema = v.LookupPath(cue.ParsePath("#File"))
}

// validate checks a decoded document against the file schema.
func validate(doc map[string]any) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	v := schema.Context().Encode(doc)
	if err := v.Err(); err != nil {
		return err
	}
	return schema.Unify(v).Validate(cue.Concrete(true))
}

// ParseFile decodes and validates namespace file contents without
// defining anything.
func ParseFile(data []byte) ([]Word, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(raw); err != nil {
		return nil, err
	}
	var f namespaceFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, err
	}
	return f.Words, nil
}

// LoadFile defines every word of the namespace file at path. Either all
// words are defined or, on error, r is left unchanged. It returns the
// names defined.
func (r *Registry) LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading namespace file: %w", err)
	}
	words, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	next := r.Clone()
	names := make([]string, 0, len(words))
	for _, w := range words {
		e, err := next.Define(w.Name, w.Body, w.Doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := declared(e.Signature, w.Input, w.Output); err != nil {
			return nil, fmt.Errorf("%s: word %s: %w", path, w.Name, err)
		}
		names = append(names, w.Name)
	}
	r.replace(next)

	log.Infof("loaded %d words from %s", len(names), path)
	return names, nil
}

// Load returns a copy of base extended with the words of every file in
// paths, in order.
func Load(base *Registry, paths ...string) (*Registry, error) {
	r := base.Clone()
	for _, path := range paths {
		if _, err := r.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return r, nil
}
