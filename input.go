package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/sei-protocol/ckanpatch/entity"
)

// documentFormat picks the input format from the flag, else from the file extension,
// else JSON.
func documentFormat(file, flag string) (string, error) {
	format := strings.ToLower(flag)
	if format == "" && file != "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	}
	switch format {
	case "", "json":
		return "json", nil
	case "yaml", "yml":
		return "yaml", nil
	case "toml":
		return "toml", nil
	default:
		return "", fmt.Errorf("unsupported document format: %s (must be json, yaml or toml)", format)
	}
}

// readDocument reads a document from file, or from stdin when file is empty. An empty
// input yields a nil document.
func readDocument(file, format string, stdin io.Reader) (entity.Document, error) {
	var data []byte
	if file == "" {
		// Read full multi-line input from stdin
		var buffer bytes.Buffer
		scanner := bufio.NewScanner(stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			buffer.Write(scanner.Bytes())
			buffer.WriteByte('\n')
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading input from stdin: %w", err)
		}
		data = buffer.Bytes()
	} else {
		var err error
		data, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading document file: %w", err)
		}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	format, err := documentFormat(file, format)
	if err != nil {
		return nil, err
	}
	doc := make(entity.Document)
	switch format {
	case "json":
		err = json.Unmarshal(data, &doc)
	case "yaml":
		err = yaml.Unmarshal(data, &doc)
	case "toml":
		err = toml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing document as %s: %w", strings.ToUpper(format), err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document must be a %s object, got null", strings.ToUpper(format))
	}
	return doc, nil
}

// encodeDocument renders doc in the given output format.
func encodeDocument(doc entity.Document, format string) (bytes.Buffer, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "", "json":
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			return buf, fmt.Errorf("marshalling document as JSON: %w", err)
		}
	case "yaml", "yml":
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(map[string]any(doc)); err != nil {
			return buf, fmt.Errorf("marshalling document as YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return buf, err
		}
	case "toml":
		if err := toml.NewEncoder(&buf).Encode(map[string]any(doc)); err != nil {
			return buf, fmt.Errorf("marshalling document as TOML: %w", err)
		}
	default:
		return buf, fmt.Errorf("unsupported output format: %s (must be json, yaml or toml)", format)
	}
	return buf, nil
}
