// Package manifest loads paper manifests and registers them.
//
// A manifest is a YAML document describing one paper and its sections:
//
//	author: 3b6a27bc...          # hex identity, 64 characters
//	paper:
//	  file: paper.pdf
//	sections:
//	  - type: abstract
//	    file: abstract.txt
//	    uniqueness_score: 90
//	    summary: Short description of the abstract.
//	  - type: conclusion
//	    text: We conclude that...
//
// Each source gives exactly one of file, text or hash. Files are read
// relative to the manifest and fingerprinted as raw bytes; text is
// fingerprinted after NFC normalization; hash is used as given.
//
// Manifests are checked twice: strict YAML decoding rejects unknown fields,
// and the embedded CUE schema constrains values (identity format, section
// type names, score range).
package manifest

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/secfit/ip-protector/internal/fingerprint"
)

//go:embed schema.cue
var schemaCUE string

// MaxSections is the largest section list a manifest may carry. The paper
// record stores the count in a single byte.
const MaxSections = 255

// KnownSectionTypes lists the conventional section names. Other lowercase
// identifiers are accepted too.
var KnownSectionTypes = []string{
	"abstract",
	"introduction",
	"related_works",
	"proposed_model",
	"conclusion",
}

// Source locates content to fingerprint.
type Source struct {
	File string `yaml:"file,omitempty"`
	Text string `yaml:"text,omitempty"`
	Hash string `yaml:"hash,omitempty"`
}

// Section is one section entry of a manifest.
type Section struct {
	Source          `yaml:",inline"`
	Type            string `yaml:"type"`
	UniquenessScore uint8  `yaml:"uniqueness_score,omitempty"`
	Summary         string `yaml:"summary,omitempty"`
}

// Manifest describes a paper and its sections.
type Manifest struct {
	Author   string    `yaml:"author"`
	Paper    Source    `yaml:"paper"`
	Sections []Section `yaml:"sections,omitempty"`

	// BaseDir resolves relative file sources. Set by Load.
	BaseDir string `yaml:"-"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.BaseDir = filepath.Dir(path)
	return m, nil
}

// Parse decodes and validates manifest YAML. File sources resolve against
// the working directory unless BaseDir is set afterwards.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := checkSchema(raw); err != nil {
		return nil, err
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// checkSchema unifies raw with #Manifest and requires a concrete result.
func checkSchema(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling manifest schema: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("manifest does not match schema: %w", err)
	}
	return nil
}

func (m *Manifest) validate() error {
	if _, err := fingerprint.ParseIdentity(m.Author); err != nil {
		return fmt.Errorf("author: %w", err)
	}
	if err := m.Paper.check(); err != nil {
		return fmt.Errorf("paper: %w", err)
	}
	if len(m.Sections) > MaxSections {
		return fmt.Errorf("sections: %d entries, max %d", len(m.Sections), MaxSections)
	}
	for i, s := range m.Sections {
		if err := s.Source.check(); err != nil {
			return fmt.Errorf("sections[%d] (%s): %w", i, s.Type, err)
		}
	}
	return nil
}

// AuthorIdentity returns the parsed author.
func (m *Manifest) AuthorIdentity() fingerprint.Identity {
	id, _ := fingerprint.ParseIdentity(m.Author)
	return id
}

var errSourceCount = errors.New("exactly one of file, text or hash is required")

func (s Source) check() error {
	n := 0
	for _, v := range []string{s.File, s.Text, s.Hash} {
		if v != "" {
			n++
		}
	}
	if n != 1 {
		return errSourceCount
	}
	return nil
}

// Resolve returns the content hash the source designates.
func (s Source) Resolve(baseDir string) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	switch {
	case s.Hash != "":
		return s.Hash, nil
	case s.Text != "":
		return fingerprint.Digest(s.Text), nil
	}

	path := s.File
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	return fingerprint.DigestReader(f)
}
