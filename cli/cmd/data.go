package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ardnew/bloc/lang"
)

// Data selects the context data shared by render, eval and repl.
type Data struct {
	Data []string `help:"YAML or JSON file of context data (merged in order)" placeholder:"FILE" short:"d" type:"existingfile"`
	Set  []string `help:"Set a context entry; the value is parsed as YAML"     placeholder:"KEY=VALUE" short:"D"`
}

// load reads every data file in order, then applies every --set entry. A
// later top-level key replaces an earlier one.
func (d Data) load() (map[string]any, error) {
	data := make(map[string]any)

	for _, path := range d.Data {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, ErrReadInput.Wrap(err).With(slog.String("file", path))
		}

		v, err := lang.Decode(buf)
		if err != nil {
			return nil, ErrDecodeData.Wrap(err).With(slog.String("file", path))
		}

		switch doc := v.(type) {
		case nil:
		case *lang.Object:
			for _, k := range doc.Keys() {
				data[k], _ = doc.Get(k)
			}
		default:
			return nil, ErrDecodeData.
				With(slog.String("file", path), slog.String("type", "not a mapping"))
		}
	}

	for _, entry := range d.Set {
		key, text, ok := strings.Cut(entry, "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			return nil, ErrInvalidSet.With(slog.String("entry", entry))
		}

		data[key] = scalar(text)
	}

	return data, nil
}

// scalar parses text as a YAML value, falling back to the raw string.
func scalar(text string) any {
	if strings.TrimSpace(text) == "" {
		return text
	}

	v, err := lang.Decode([]byte(text))
	if err != nil {
		return text
	}

	return v
}
