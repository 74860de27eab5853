package model

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CellKind identifies which value a Cell carries.
type CellKind string

const (
	CellEmpty  CellKind = "empty"
	CellText   CellKind = "text"
	CellNumber CellKind = "number"
	CellBool   CellKind = "bool"
)

// Cell is one spreadsheet value preserved verbatim from a source row.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Bool   bool
}

// TextCell returns a text cell.
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// BoolCell returns a boolean cell.
func BoolCell(b bool) Cell { return Cell{Kind: CellBool, Bool: b} }

// EmptyCell returns a cell with no value.
func EmptyCell() Cell { return Cell{Kind: CellEmpty} }

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || c.Kind == ""
}

// String renders the cell the way it would read in a spreadsheet.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellBool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

func (c Cell) scalar() any {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return c.Number
	case CellBool:
		return c.Bool
	default:
		return nil
	}
}

// MarshalJSON encodes the cell as a bare JSON scalar.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.scalar())
}

// UnmarshalJSON decodes a bare JSON scalar into the matching cell kind.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "cell: unmarshal")
	}
	switch t := v.(type) {
	case nil:
		*c = EmptyCell()
	case string:
		*c = TextCell(t)
	case float64:
		*c = NumberCell(t)
	case bool:
		*c = BoolCell(t)
	default:
		return eris.Errorf("cell: unsupported JSON value %s", string(data))
	}
	return nil
}

// MarshalYAML encodes the cell as a bare YAML scalar.
func (c Cell) MarshalYAML() (any, error) {
	return c.scalar(), nil
}

// UnmarshalYAML decodes a YAML scalar into the matching cell kind.
func (c *Cell) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return eris.Errorf("cell: expected scalar, got YAML kind %d", node.Kind)
	}
	switch node.ShortTag() {
	case "!!null":
		*c = EmptyCell()
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return eris.Wrap(err, "cell: decode bool")
		}
		*c = BoolCell(b)
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return eris.Wrap(err, "cell: decode number")
		}
		*c = NumberCell(f)
	default:
		*c = TextCell(node.Value)
	}
	return nil
}
