// Package codec encodes and decodes tab state for export, import and the
// HTTP API. JSON is the human-readable format; CBOR uses Core Deterministic
// Encoding so the same state always produces the same bytes.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/mesh-intelligence/tabtree/internal/tree"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// Format names an encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ErrUnknownFormat is returned for format names other than json and cbor.
var ErrUnknownFormat = errors.New("unknown format")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// ParseFormat maps a name to a Format. The empty name means JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, name)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatCBOR {
		return "application/cbor"
	}
	return "application/json"
}

// Marshal encodes v in format f.
func Marshal(f Format, v any) ([]byte, error) {
	switch f {
	case FormatCBOR:
		return encMode.Marshal(v)
	case FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, f)
}

// Unmarshal decodes data in format f into v.
func Unmarshal(f Format, data []byte, v any) error {
	switch f {
	case FormatCBOR:
		return decMode.Unmarshal(data, v)
	case FormatJSON:
		return json.Unmarshal(data, v)
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, f)
}

// WriteState encodes s to w.
func WriteState(w io.Writer, f Format, s *types.StateStore) error {
	data, err := Marshal(f, s)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if f == FormatJSON {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// ReadState decodes a state from r and repairs any window that fails
// validation: misfiled nodes are re-keyed, links are made to agree and
// positions are renumbered.
func ReadState(r io.Reader, f Format) (*types.StateStore, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := types.NewStateStore()
	if err := Unmarshal(f, data, s); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	if s.Windows == nil {
		s.Windows = make(map[types.WindowID]*types.WindowTree)
	}
	for id, w := range s.Windows {
		if w == nil {
			w = types.NewWindowTree(id)
			s.Windows[id] = w
		}
		w.WindowID = id
		if w.Tabs == nil {
			w.Tabs = make(map[types.TabID]*types.TabNode)
		}
		for tabID, n := range w.Tabs {
			if n == nil {
				delete(w.Tabs, tabID)
				continue
			}
			if n.ChildTabIDs == nil {
				n.ChildTabIDs = []types.TabID{}
			}
		}
		tree.Repair(w)
	}
	return s, nil
}
