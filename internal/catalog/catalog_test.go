package catalog

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductType(t *testing.T) {
	for raw, want := range map[string]ProductType{
		"raw_material":  RawMaterial,
		" Subassembly ": Subassembly,
		"FINISHED_GOOD": FinishedGood,
	} {
		got, err := ParseProductType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := ParseProductType("service")
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestValidate_RejectsMalformedProducts(t *testing.T) {
	cases := map[string]Product{
		"empty id":           {Name: "x", Type: RawMaterial},
		"empty name":         {ID: "x", Type: RawMaterial},
		"unknown type":       {ID: "x", Name: "x", Type: "service"},
		"negative cost":      {ID: "x", Name: "x", Type: RawMaterial, UnitCost: -1},
		"nan cost":           {ID: "x", Name: "x", Type: RawMaterial, UnitCost: math.NaN()},
		"raw with bom":       {ID: "x", Name: "x", Type: RawMaterial, Components: []Component{Uses("y", 1)}},
		"negative quantity":  {ID: "x", Name: "x", Type: Subassembly, Components: []Component{Uses("y", -2)}},
		"infinite quantity":  {ID: "x", Name: "x", Type: Subassembly, Components: []Component{Uses("y", math.Inf(1))}},
		"self reference":     {ID: "x", Name: "x", Type: Subassembly, Components: []Component{Uses("x", 1)}},
		"blank component id": {ID: "x", Name: "x", Type: FinishedGood, Components: []Component{Uses(" ", 1)}},
		"colon in id":        {ID: "a:1", Name: "x", Type: RawMaterial},
		"semicolon in id":    {ID: "a;b", Name: "x", Type: RawMaterial},
		"colon in component": {ID: "x", Name: "x", Type: Subassembly, Components: []Component{Uses("a:1", 2)}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProduct), "got %v", err)
		})
	}
}

func TestValidate_AcceptsZeroQuantity(t *testing.T) {
	p := Product{ID: "x", Name: "x", Type: Subassembly, Components: []Component{Uses("y", 0)}}
	assert.NoError(t, Validate(p))
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewBuilder().Raw("pine", 10).Raw("pine", 12).Build()
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestNew_AcceptsDanglingReferencesAndCycles(t *testing.T) {
	cat, err := NewBuilder().
		Assembly("x", Uses("y", 1)).
		Assembly("y", Uses("x", 1)).
		Assembly("z", Uses("ghost", 3)).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Len())
	assert.Equal(t, map[string][]string{"z": {"ghost"}}, cat.DanglingReferences())
}

func TestCatalog_IsolatedFromInputMutation(t *testing.T) {
	comps := []Component{Uses("pine", 2)}
	cat, err := New([]Product{
		{ID: "pine", Name: "Pine Board", Type: RawMaterial, UnitCost: 10},
		{ID: "drawer", Name: "Drawer", Type: Subassembly, Components: comps},
	})
	require.NoError(t, err)

	comps[0].Quantity = 99

	got, ok := cat.Get("drawer")
	require.True(t, ok)
	assert.Equal(t, 2.0, got.Components[0].Quantity)

	got.Components[0].Quantity = 42
	again, _ := cat.Get("drawer")
	assert.Equal(t, 2.0, again.Components[0].Quantity)
}

func TestCatalog_IDsSorted(t *testing.T) {
	cat, err := NewBuilder().Raw("c", 1).Raw("a", 1).Raw("b", 1).Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cat.IDs())
}

func TestNilCatalog(t *testing.T) {
	var cat *Catalog
	_, ok := cat.Get("x")
	assert.False(t, ok)
	assert.Zero(t, cat.Len())
	assert.Nil(t, cat.FindCycle("x"))
}
