package resource

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxFrontMatter bounds how much of a file is read looking for the closing fence.
const maxFrontMatter = 1 << 20

// FrontMatter is the YAML block at the top of a content file, fenced by
// "---" lines.
type FrontMatter struct {
	UUID  string `yaml:"uuid"`
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Type  string `yaml:"type"`
}

// ErrNoFrontMatter is returned when a file does not start with a fenced block.
var ErrNoFrontMatter = errors.New("no front matter")

// ReadFrontMatter parses the front matter of the file at path.
func ReadFrontMatter(path string) (*FrontMatter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseFrontMatter(f)
}

// ParseFrontMatter reads a fenced YAML block from the start of r. A missing
// opening or closing fence yields ErrNoFrontMatter.
func ParseFrontMatter(r io.Reader) (*FrontMatter, error) {
	br := bufio.NewReader(io.LimitReader(r, maxFrontMatter))

	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	first = strings.TrimPrefix(first, "\ufeff")
	if strings.TrimRight(first, "\r\n") != "---" {
		return nil, ErrNoFrontMatter
	}

	var block bytes.Buffer
	for {
		line, err := br.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "---" || trimmed == "..." {
			break
		}
		block.WriteString(line)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoFrontMatter
			}
			return nil, err
		}
	}

	var fm FrontMatter
	if err := yaml.Unmarshal(block.Bytes(), &fm); err != nil {
		return nil, fmt.Errorf("parsing front matter: %w", err)
	}
	return &fm, nil
}

// DeclaredID returns the identifier the front matter declares, preferring
// uuid over id.
func (fm *FrontMatter) DeclaredID() string {
	if fm.UUID != "" {
		return fm.UUID
	}
	return fm.ID
}
