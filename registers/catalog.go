/*Package registers describes the named, addressable registers of the servo.

A Catalog is built once from a list of Definitions and never changes after
construction, so it may be shared freely between goroutines.  Lookups go both
ways: by the logical name used in the GUI and by the hardware address used on
the wire.

	cat, err := registers.NewCatalog(
		registers.Definition{Name: "gain", Address: 0x10},
	)
	if err != nil {
		log.Fatal(err)
	}
	def, err := cat.ByAddress(0x10) // def.Name == "gain"
*/
package registers

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRegister is generated when a name is not in the catalog
	ErrUnknownRegister = errors.New("unknown register")

	// ErrUnknownAddress is generated when an address is not in the catalog
	ErrUnknownAddress = errors.New("unknown register address")

	// ErrDuplicateDefinition is generated when two definitions share a name or an address
	ErrDuplicateDefinition = errors.New("duplicate register definition")

	// ErrInvalidDefinition is generated when a definition has no name
	ErrInvalidDefinition = errors.New("invalid register definition")
)

// FormatFunc converts a raw register value to display text
type FormatFunc func(int64) string

// Definition is the static description of a single register
type Definition struct {
	// Name is the unique key of the register
	Name string

	// Subsystem is the slash separated hierarchy the register lives under,
	// e.g. "pll/demodulator/oscillator".  Empty places it at the root.
	Subsystem string

	// Address is the hardware address, unique within a catalog
	Address uint32

	// DisplayName is the human readable label
	DisplayName string

	// Visible determines if the register is shown by default
	Visible bool

	// Format renders values for display.  Decimal is used if nil.
	Format FormatFunc
}

// FormatValue renders v with the definition's formatter
func (d Definition) FormatValue(v int64) string {
	if d.Format == nil {
		return Decimal(v)
	}
	return d.Format(v)
}

// Label returns DisplayName, or Name if there is no display name
func (d Definition) Label() string {
	if d.DisplayName == "" {
		return d.Name
	}
	return d.DisplayName
}

// Catalog is an immutable set of register definitions.
// Catalogs must be created with NewCatalog.
type Catalog struct {
	defs   []Definition
	byName map[string]int
	byAddr map[uint32]int
}

// NewCatalog validates defs and builds the lookup tables.
// Names and addresses must both be unique.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:   make([]Definition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
		byAddr: make(map[uint32]int, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: register at address %#x has no name", ErrInvalidDefinition, d.Address)
		}
		if _, ok := c.byName[d.Name]; ok {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicateDefinition, d.Name)
		}
		if i, ok := c.byAddr[d.Address]; ok {
			return nil, fmt.Errorf("%w: address %#x used by %q and %q",
				ErrDuplicateDefinition, d.Address, c.defs[i].Name, d.Name)
		}
		c.byName[d.Name] = len(c.defs)
		c.byAddr[d.Address] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c, nil
}

// ByName returns the definition of the named register
func (c *Catalog) ByName(name string) (Definition, error) {
	i, ok := c.byName[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	return c.defs[i], nil
}

// ByAddress returns the definition of the register at addr
func (c *Catalog) ByAddress(addr uint32) (Definition, error) {
	i, ok := c.byAddr[addr]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %#x", ErrUnknownAddress, addr)
	}
	return c.defs[i], nil
}

// NameFromAddress is a shorthand for ByAddress(addr).Name
func (c *Catalog) NameFromAddress(addr uint32) (string, error) {
	d, err := c.ByAddress(addr)
	return d.Name, err
}

// Has returns true if the named register is in the catalog
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Names returns the register names in definition order
func (c *Catalog) Names() []string {
	out := make([]string, len(c.defs))
	for i, d := range c.defs {
		out[i] = d.Name
	}
	return out
}

// Definitions returns a copy of the definitions in definition order
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len is the number of registers in the catalog
func (c *Catalog) Len() int {
	return len(c.defs)
}
