package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/varhub/internal/client"
	"github.com/alfredjeanlab/varhub/internal/events"
	"github.com/alfredjeanlab/varhub/internal/model"
)

// Output formats accepted by --output.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func parseFormat(s string) (string, error) {
	switch s {
	case formatTable, formatJSON, formatYAML:
		return s, nil
	case "yml":
		return formatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

// printStructured writes v as indented JSON or YAML.
func printStructured(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// variableDoc is the YAML-friendly shape of a variable.
type variableDoc struct {
	ID         string `yaml:"id"`
	Identifier string `yaml:"identifier"`
	Type       string `yaml:"type"`
	Value      string `yaml:"value"`
	CreatedAt  string `yaml:"created_at"`
	UpdatedAt  string `yaml:"updated_at"`
}

func toDoc(v *model.Variable) variableDoc {
	return variableDoc{
		ID:         v.ID,
		Identifier: v.Identifier,
		Type:       v.Type.String(),
		Value:      v.Value,
		CreatedAt:  v.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		UpdatedAt:  v.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
	}
}

func printVariable(w io.Writer, format string, v *model.Variable) error {
	switch format {
	case formatJSON:
		return printStructured(w, format, v)
	case formatYAML:
		return printStructured(w, format, toDoc(v))
	}
	fmt.Fprintf(w, "ID:          %s\n", v.ID)
	fmt.Fprintf(w, "Identifier:  %s\n", v.Identifier)
	fmt.Fprintf(w, "Type:        %s\n", v.Type)
	fmt.Fprintf(w, "Value:       %s\n", v.Value)
	if !v.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:  %s\n", v.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if !v.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated At:  %s\n", v.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printVariableList(w io.Writer, format string, vars []*model.Variable) error {
	switch format {
	case formatJSON:
		return printStructured(w, format, vars)
	case formatYAML:
		docs := make([]variableDoc, len(vars))
		for i, v := range vars {
			docs[i] = toDoc(v)
		}
		return printStructured(w, format, docs)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tIDENTIFIER\tTYPE\tVALUE\tUPDATED")
	for _, v := range vars {
		value := v.Value
		if len(value) > 40 {
			value = value[:37] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.ID,
			v.Identifier,
			v.Type,
			value,
			v.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d variables\n", len(vars))
	return err
}

func printSubscribers(w io.Writer, format string, subs []client.Subscriber) error {
	if format != formatTable {
		return printStructured(w, format, subs)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTRANSPORT\tREMOTE\tCONNECTED\tDELIVERED\tDROPPED")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			s.ID, s.Transport, s.RemoteAddr,
			s.ConnectedAt.Local().Format("2006-01-02 15:04:05"),
			s.Delivered, s.Dropped)
	}
	return tw.Flush()
}

// printFrame renders one real-time notification. Structured formats print
// the frame as received; table prints a one-line summary.
func printFrame(w io.Writer, format string, f events.Frame) error {
	switch format {
	case formatJSON:
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		var payload any
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return fmt.Errorf("decoding frame data: %w", err)
		}
		fmt.Fprintln(w, "---")
		return printStructured(w, format, map[string]any{"type": f.Type, "topic": f.Topic, "data": payload})
	}

	switch f.Type {
	case events.MessageVariableUpdate:
		var c events.VariableChanged
		if err := json.Unmarshal(f.Data, &c); err != nil {
			return fmt.Errorf("decoding change: %w", err)
		}
		if c.OldValue == nil {
			_, err := fmt.Fprintf(w, "created  %s (%s) = %q\n", c.Identifier, c.ID, c.NewValue)
			return err
		}
		_, err := fmt.Fprintf(w, "updated  %s (%s) %q -> %q\n", c.Identifier, c.ID, *c.OldValue, c.NewValue)
		return err
	case events.MessageVariableDeletion:
		var d events.VariableDeleted
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return fmt.Errorf("decoding deletion: %w", err)
		}
		_, err := fmt.Fprintf(w, "deleted  %s\n", d.ID)
		return err
	}
	_, err := fmt.Fprintf(w, "%s  %s\n", f.Type, string(f.Data))
	return err
}
