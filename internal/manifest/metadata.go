package manifest

import (
	"bytes"
	"errors"
	"go/token"
	"slices"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/module"
)

// metadataSchema mirrors featurescope.toml.
type metadataSchema struct {
	Declare map[string]any `toml:"declare"`
	Scope   []scopeBlock   `toml:"scope"`
}

type scopeBlock struct {
	Package         string   `toml:"package"`
	Features        []string `toml:"features"`
	DefaultFeatures *bool    `toml:"default-features"`
}

// ParseMetadata decodes the featurescope.toml content owned by consumer.
// The declaration is nil when the file has no [declare] table.
func ParseMetadata(file string, consumer PackageID, data []byte) (*Declaration, []Override, error) {
	var raw metadataSchema
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, tomlError(file, err)
	}

	var decl *Declaration
	if raw.Declare != nil {
		d, err := parseDeclaration(file, raw.Declare)
		if err != nil {
			return nil, nil, err
		}
		decl = d
	}

	overrides := make([]Override, 0, len(raw.Scope))
	for i, blk := range raw.Scope {
		o, err := parseScopeBlock(file, consumer, i, blk)
		if err != nil {
			return nil, nil, err
		}
		overrides = append(overrides, o)
	}
	return decl, overrides, nil
}

func parseDeclaration(file string, table map[string]any) (*Declaration, error) {
	decl := &Declaration{Implies: make(map[OptionName][]OptionName)}

	for key, value := range table {
		if OptionName(key) == DefaultOption {
			continue
		}
		if !token.IsIdentifier(key) {
			return nil, parseErrorf(file, "declare: option %q is not a valid identifier", key)
		}
		implied, err := optionList(file, "declare."+key, value, true)
		if err != nil {
			return nil, err
		}
		decl.All = append(decl.All, OptionName(key))
		if len(implied) > 0 {
			decl.Implies[OptionName(key)] = implied
		}
	}
	sort.Slice(decl.All, func(i, j int) bool { return decl.All[i] < decl.All[j] })

	if v, ok := table[string(DefaultOption)]; ok {
		defaults, err := optionList(file, "declare.default", v, false)
		if err != nil {
			return nil, err
		}
		decl.Defaults = defaults
	}

	for _, name := range decl.Defaults {
		if !decl.Has(name) {
			return nil, parseErrorf(file, "declare.default: %q is not a declared option", name)
		}
	}
	for from, implied := range decl.Implies {
		for _, name := range implied {
			if !decl.Has(name) {
				return nil, parseErrorf(file, "declare.%s: implied option %q is not declared", from, name)
			}
		}
	}
	return decl, nil
}

// optionList converts a TOML value into option names. Declared options may
// carry any non-array value, which stands for "implies nothing".
func optionList(file, field string, value any, lenient bool) ([]OptionName, error) {
	arr, ok := value.([]any)
	if !ok {
		if lenient {
			return nil, nil
		}
		return nil, parseErrorf(file, "%s: expected an array of option names", field)
	}
	var out []OptionName
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, parseErrorf(file, "%s: item %d must be a string", field, i)
		}
		if !token.IsIdentifier(s) {
			return nil, parseErrorf(file, "%s: %q is not a valid identifier", field, s)
		}
		if !slices.Contains(out, OptionName(s)) {
			out = append(out, OptionName(s))
		}
	}
	return out, nil
}

func parseScopeBlock(file string, consumer PackageID, index int, blk scopeBlock) (Override, error) {
	if blk.Package == "" {
		return Override{}, parseErrorf(file, "scope[%d]: missing package", index)
	}
	if err := module.CheckPath(blk.Package); err != nil {
		pe := parseErrorf(file, "scope[%d]: invalid package", index)
		pe.Err = err
		return Override{}, pe
	}
	o := Override{
		Consumer:        consumer,
		Dependency:      PackageID(blk.Package),
		IncludeDefaults: blk.DefaultFeatures == nil || *blk.DefaultFeatures,
		File:            file,
		Index:           index,
	}
	for _, f := range blk.Features {
		if OptionName(f) == DefaultOption {
			return Override{}, parseErrorf(file, "scope[%d]: %q is reserved, use default-features", index, f)
		}
		if !token.IsIdentifier(f) {
			return Override{}, parseErrorf(file, "scope[%d]: feature %q is not a valid identifier", index, f)
		}
		if !slices.Contains(o.Selected, OptionName(f)) {
			o.Selected = append(o.Selected, OptionName(f))
		}
	}
	return o, nil
}

// tomlError converts go-toml decode failures into positioned ParseErrors.
func tomlError(file string, err error) error {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return &ParseError{File: file, Line: row, Column: col, Msg: derr.Error()}
	}
	var serr *toml.StrictMissingError
	if errors.As(err, &serr) && len(serr.Errors) > 0 {
		first := serr.Errors[0]
		row, col := first.Position()
		return &ParseError{File: file, Line: row, Column: col, Msg: "unknown key " + joinKey(first.Key())}
	}
	return &ParseError{File: file, Msg: "decoding", Err: err}
}

func joinKey(k toml.Key) string {
	var buf bytes.Buffer
	for i, part := range k {
		if i > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(part)
	}
	return buf.String()
}
