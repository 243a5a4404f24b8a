package guest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmobject "github.com/wippyai/wasm-object"
	"github.com/wippyai/wasm-object/errors"
)

// Manifest declares the header-only classes a guest module provides.
type Manifest struct {
	Classes []ManifestClass `json:"classes" validate:"dive"`
}

// ManifestClass is one class entry of a manifest.
type ManifestClass struct {
	Name       string   `json:"name" validate:"required,max=255" jsonschema:"minLength=1,maxLength=255"`
	Properties []string `json:"properties,omitempty" validate:"unique,dive,required,max=255" jsonschema:"uniqueItems=true"`
	// Constructor names a guest export called as (header, args...) -> i32.
	Constructor string `json:"constructor,omitempty"`
}

// ParseManifest decodes and validates a JSON manifest. Unknown fields are
// rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(errors.PhaseRegister, errors.KindInvalidInput, err, "decode manifest")
	}
	if err := validate.Struct(m); err != nil {
		return nil, errors.Wrap(errors.PhaseRegister, errors.KindInvalidInput, err, "validate manifest")
	}
	return &m, nil
}

// ManifestSchema returns the JSON Schema of the manifest format.
func ManifestSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Manifest{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest schema: %w", err)
	}
	return data, nil
}

// LoadManifest registers every class in m. Constructors are resolved against
// mod's exports; mod may be nil when no class names one. Registration stops
// at the first failure and returns the ids registered so far.
func (r *Runtime) LoadManifest(mod api.Module, m *Manifest) ([]uint32, error) {
	ids := make([]uint32, 0, len(m.Classes))
	for _, mc := range m.Classes {
		spec := wasmobject.ClassSpec{
			Name:       mc.Name,
			Properties: mc.Properties,
		}
		if mc.Constructor != "" {
			if mod == nil {
				return ids, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
					Class(mc.Name).
					Detail("constructor %q needs a module", mc.Constructor).
					Build()
			}
			ctor, err := ExportedConstructor(mod, mc.Constructor)
			if err != nil {
				return ids, err
			}
			spec.Constructor = ctor
		}

		id, err := r.RegisterClass(spec)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	Logger().Debug("manifest loaded", zap.Int("classes", len(ids)))
	return ids, nil
}
