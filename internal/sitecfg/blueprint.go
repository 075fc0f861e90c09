// Blueprint export/import: the only way configuration moves between
// installations.

package sitecfg

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
)

// BlueprintVersion is the current blueprint document version.
const BlueprintVersion = 1

// ExportFilename is the suggested download name for an exported blueprint.
const ExportFilename = "Patisserie_Lane_Blueprint.json"

// ErrMalformedBlueprint reports an import file that does not parse or
// validate as a blueprint. Nothing is mutated when it is returned.
var ErrMalformedBlueprint = errors.New("not a valid blueprint")

// Blueprint bundles the catalog and the overridden text keys into one
// transferable document. Text keys with no override are omitted so an
// import leaves them at their built-in defaults. Unknown top-level keys in
// an imported file are tolerated and ignored.
type Blueprint struct {
	// Version tags the document format. Files written before versioning
	// (version absent or 0) are read as version 1.
	Version  int               `json:"version,omitempty"`
	Products []Product         `json:"products,omitempty"`
	Text     map[string]string `json:"text,omitempty"`
}

// Export assembles the current blueprint: the active catalog plus only the
// overridden text keys. Non-destructive.
func (c *Config) Export() Blueprint {
	return Blueprint{
		Version:  BlueprintVersion,
		Products: c.ActiveCatalog().Products,
		Text:     c.TextOverrides(),
	}
}

// Import parses data as a blueprint and applies it.
//
// Validation happens entirely before any write: on any parse or validation
// failure the stored state is untouched and ErrMalformedBlueprint is
// returned. On success the catalog override (when products are present)
// and every provided text override are staged and committed as one atomic
// batch, so a half-applied import cannot occur.
func (c *Config) Import(data []byte) error {
	var bp Blueprint
	if err := json.Unmarshal(data, &bp); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBlueprint, err)
	}
	if bp.Version > BlueprintVersion {
		return fmt.Errorf("%w: version %d is newer than supported version %d", ErrMalformedBlueprint, bp.Version, BlueprintVersion)
	}
	if bp.Products != nil {
		if err := validateCatalog(bp.Products); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedBlueprint, err)
		}
	}

	set := map[string]string{}
	if bp.Products != nil {
		serialized, err := json.Marshal(bp.Products)
		if err != nil {
			return fmt.Errorf("failed to marshal catalog: %w", err)
		}
		set[catalogKey] = string(serialized)
	}
	for key, value := range bp.Text {
		// Keys the site copy does not know are dead weight; skip them.
		if IsTextKey(key) {
			set[textKeyPrefix+key] = value
		}
	}
	if len(set) == 0 {
		return nil
	}
	return c.local.Apply(set, nil)
}

// BlueprintSchema returns the JSON Schema for the blueprint document,
// generated from the Go types. Served to tooling alongside the export.
func BlueprintSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: false}
	schema := r.Reflect(&Blueprint{})
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blueprint schema: %w", err)
	}
	return data, nil
}
