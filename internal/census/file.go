package census

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Format identifies a zone file encoding.
type Format string

// Supported zone file formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("census: unsupported zone file extension %q", filepath.Ext(path))
	}
}

// LoadRecords reads zone records from a JSON or YAML file. The file may hold
// a single record or a list of records.
func LoadRecords(path string) ([]Record, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	records, err := ReadRecords(f, format)
	if err != nil {
		return nil, eris.Wrapf(err, "census: read %s", path)
	}
	return records, nil
}

// ReadRecords decodes zone records from r.
func ReadRecords(r io.Reader, format Format) ([]Record, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "census: read records")
	}

	var records []Record
	switch format {
	case FormatJSON:
		trimmed := strings.TrimSpace(string(body))
		if strings.HasPrefix(trimmed, "{") {
			var rec Record
			if err := json.Unmarshal(body, &rec); err != nil {
				return nil, eris.Wrap(err, "census: decode json record")
			}
			records = []Record{rec}
			break
		}
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, eris.Wrap(err, "census: decode json records")
		}
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(body, &node); err != nil {
			return nil, eris.Wrap(err, "census: parse yaml records")
		}
		if len(node.Content) == 0 {
			return nil, nil
		}
		root := node.Content[0]
		if root.Kind == yaml.MappingNode {
			var rec Record
			if err := root.Decode(&rec); err != nil {
				return nil, eris.Wrap(err, "census: decode yaml record")
			}
			records = []Record{rec}
			break
		}
		if err := root.Decode(&records); err != nil {
			return nil, eris.Wrap(err, "census: decode yaml records")
		}
	default:
		return nil, eris.Errorf("census: unsupported format %q", format)
	}

	for i, rec := range records {
		if rec.Zipcode == "" {
			return nil, eris.Errorf("census: record %d has no zipcode", i)
		}
	}
	return records, nil
}

// WriteRecords encodes records as indented JSON.
func WriteRecords(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return eris.Wrap(err, "census: encode records")
	}
	return nil
}
