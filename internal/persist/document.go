package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

// DocumentSchema describes an exported board. Boxes may be a mapping keyed
// by id or a sequence of boxes.
const DocumentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "boxes": {
      "oneOf": [
        {"type": "object", "additionalProperties": {"oneOf": [{"$ref": "#/definitions/box"}, {"type": "null"}]}},
        {"type": "array", "items": {"type": "object"}}
      ]
    },
    "layouts": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {"$ref": "#/definitions/item"}
      }
    }
  },
  "definitions": {
    "id": {"type": ["string", "number"]},
    "box": {
      "type": "object",
      "properties": {
        "id": {"$ref": "#/definitions/id"},
        "type": {"enum": ["heading", "text", "markdown", "image", "link", "iframe"]},
        "link": {"type": "string"},
        "text": {"type": "object"},
        "image": {"type": "object"},
        "background": {
          "type": "object",
          "properties": {
            "opacity": {"type": "number", "minimum": 0, "maximum": 100},
            "blur": {"type": "number", "minimum": 0}
          }
        },
        "border": {"type": "object"}
      }
    },
    "item": {
      "type": "object",
      "required": ["i"],
      "properties": {
        "i": {"$ref": "#/definitions/id"},
        "x": {"type": "integer", "minimum": 0},
        "y": {"type": "integer", "minimum": 0},
        "w": {"type": "integer", "minimum": 1},
        "h": {"type": "integer", "minimum": 1}
      }
    }
  }
}`

var (
	documentSchemaOnce sync.Once
	documentSchema     *jsonschema.Schema
	documentSchemaErr  error
)

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	documentSchemaOnce.Do(func() {
		documentSchema, documentSchemaErr = jsonschema.CompileString("board_document.json", DocumentSchema)
	})
	return documentSchema, documentSchemaErr
}

// DecodeDocument validates data against DocumentSchema and decodes it.
// Sequence-shaped boxes are normalized to a mapping.
func DecodeDocument(data []byte) (*models.Board, error) {
	schema, err := compiledDocumentSchema()
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	var board models.Board
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if board.Boxes == nil {
		board.Boxes = models.BoxSet{}
	}
	if board.Layouts == nil {
		board.Layouts = models.NewLayoutTable()
	}
	return &board, nil
}

// EncodeDocument renders board as indented JSON.
func EncodeDocument(board *models.Board) ([]byte, error) {
	if board == nil {
		board = newBoard()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(board); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadBootstrap reads the bootstrap boxes and layouts files. It returns nil
// when both paths are empty. Either file may be omitted.
func LoadBootstrap(boxesPath, layoutsPath string) (*models.Board, error) {
	boxesPath = strings.TrimSpace(boxesPath)
	layoutsPath = strings.TrimSpace(layoutsPath)
	if boxesPath == "" && layoutsPath == "" {
		return nil, nil
	}
	board := newBoard()
	if boxesPath != "" {
		data, err := os.ReadFile(boxesPath)
		if err != nil {
			return nil, fmt.Errorf("read bootstrap boxes: %w", err)
		}
		if err := json.Unmarshal(data, &board.Boxes); err != nil {
			return nil, fmt.Errorf("decode bootstrap boxes: %w", err)
		}
	}
	if layoutsPath != "" {
		data, err := os.ReadFile(layoutsPath)
		if err != nil {
			return nil, fmt.Errorf("read bootstrap layouts: %w", err)
		}
		if err := json.Unmarshal(data, &board.Layouts); err != nil {
			return nil, fmt.Errorf("decode bootstrap layouts: %w", err)
		}
	}
	return board, nil
}

// Replace makes store hold exactly board under namespace: boxes missing from
// board are deleted and every breakpoint is rewritten.
func Replace(ctx context.Context, store Store, namespace string, board *models.Board) error {
	existing, err := store.Load(ctx, namespace)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("load existing board: %w", err)
	}
	if existing != nil {
		for id := range existing.Boxes {
			if _, keep := board.Boxes[id]; keep {
				continue
			}
			if err := store.DeleteBox(ctx, namespace, id); err != nil {
				return err
			}
		}
	}
	for _, box := range board.Boxes.List() {
		if err := store.PutBox(ctx, namespace, box); err != nil {
			return err
		}
	}
	for _, bp := range models.Breakpoints {
		if err := store.PutLayout(ctx, namespace, bp, board.Layouts[bp]); err != nil {
			return err
		}
	}
	return nil
}
