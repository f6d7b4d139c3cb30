package catalog

// Builder assembles a catalog in code. Names default to the ID.
//
//	cat, err := catalog.NewBuilder().
//		Raw("pine", 10).
//		Raw("screw", 0.5).
//		Assembly("drawer", catalog.Component{ProductID: "pine", Quantity: 2}).
//		Build()
type Builder struct {
	products []Product
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Raw adds a raw material with the given unit cost.
func (b *Builder) Raw(id string, unitCost float64) *Builder {
	return b.Add(Product{ID: id, Name: id, Type: RawMaterial, UnitCost: unitCost})
}

// Assembly adds a subassembly made of comps.
func (b *Builder) Assembly(id string, comps ...Component) *Builder {
	return b.Add(Product{ID: id, Name: id, Type: Subassembly, Components: comps})
}

// Finished adds a finished good made of comps.
func (b *Builder) Finished(id string, comps ...Component) *Builder {
	return b.Add(Product{ID: id, Name: id, Type: FinishedGood, Components: comps})
}

// Add appends an arbitrary product.
func (b *Builder) Add(p Product) *Builder {
	b.products = append(b.products, p)
	return b
}

// Build validates the products and returns the snapshot.
func (b *Builder) Build() (*Catalog, error) {
	return New(b.products)
}

// Uses is shorthand for a Component literal.
func Uses(id string, qty float64) Component {
	return Component{ProductID: id, Quantity: qty}
}
