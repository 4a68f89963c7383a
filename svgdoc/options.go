package svgdoc

import "fmt"

const (
	defaultMaxDepth           = 256
	defaultMaxEntityExpansion = 1 << 20
)

type intOption struct {
	value int
	set   bool
}

func (o intOption) resolved(fallback int) int {
	if !o.set || o.value == 0 {
		return fallback
	}
	return o.value
}

// Options configures document parsing.
// The zero value is valid and uses the defaults: internal
// entities are expanded, with the default limits.
type Options struct {
	disableInternalEntities bool
	maxEntityExpansion      intOption
	maxDepth                intOption
}

type resolvedOptions struct {
	internalEntities   bool
	maxEntityExpansion int
	maxDepth           int
}

// NewOptions returns a default, valid options value.
func NewOptions() Options {
	return Options{}
}

// WithInternalEntities controls whether the entities declared
// in the DOCTYPE internal subset are expanded. When disabled,
// references to them are kept as literal text.
func (o Options) WithInternalEntities(allow bool) Options {
	o.disableInternalEntities = !allow
	return o
}

// AllowInternalEntities reports whether internal entities are expanded.
func (o Options) AllowInternalEntities() bool { return !o.disableInternalEntities }

// WithMaxEntityExpansion sets the maximum size, in bytes, of the
// replacement text of one entity (0 uses default).
// Past this size, the text decoded from the whole document
// (character data and attribute values) may not exceed five times
// the size of the input.
func (o Options) WithMaxEntityExpansion(value int) Options {
	o.maxEntityExpansion = intOption{value: value, set: true}
	return o
}

// WithMaxDepth sets the maximum element nesting (0 uses default).
func (o Options) WithMaxDepth(value int) Options {
	o.maxDepth = intOption{value: value, set: true}
	return o
}

// Validate validates options values.
func (o Options) Validate() error {
	_, err := o.withDefaults()
	return err
}

func (o Options) withDefaults() (resolvedOptions, error) {
	if o.maxEntityExpansion.value < 0 {
		return resolvedOptions{}, fmt.Errorf("%w: max entity expansion must be >= 0", ErrInvalidOptions)
	}
	if o.maxDepth.value < 0 {
		return resolvedOptions{}, fmt.Errorf("%w: max depth must be >= 0", ErrInvalidOptions)
	}
	return resolvedOptions{
		internalEntities:   !o.disableInternalEntities,
		maxEntityExpansion: o.maxEntityExpansion.resolved(defaultMaxEntityExpansion),
		maxDepth:           o.maxDepth.resolved(defaultMaxDepth),
	}, nil
}
