package keyswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CostsAndOrder(t *testing.T) {
	tbl := Default()
	require.Equal(t, 4, tbl.Len())

	var ids []string
	for _, k := range tbl.All() {
		ids = append(ids, k.ID)
	}
	assert.Equal(t, []string{"d", "f", "j", "k"}, ids)

	c, ok := tbl.Cost("f")
	assert.True(t, ok)
	assert.Equal(t, 1, c)

	_, ok = tbl.Cost("x")
	assert.False(t, ok)
}

func TestByCost_StableForTies(t *testing.T) {
	var ids []string
	for _, k := range Default().ByCost() {
		ids = append(ids, k.ID)
	}
	assert.Equal(t, []string{"f", "j", "d", "k"}, ids)

	ids = nil
	for _, k := range HomeRow().ByCost() {
		ids = append(ids, k.ID)
	}
	assert.Equal(t, []string{"f", "j", "d", "k", "s", "l", "a", ";"}, ids)
	assert.Equal(t, 4, HomeRow().MaxCost())
}

func TestNew_Validates(t *testing.T) {
	_, err := New([]Keyswitch{{ID: "a", Cost: 1}})
	assert.Error(t, err, "single key cannot form a code")

	_, err = New([]Keyswitch{{ID: "a", Cost: 1}, {ID: "a", Cost: 2}})
	assert.Error(t, err, "duplicate key")

	_, err = New([]Keyswitch{{ID: "a", Cost: 1}, {ID: "b", Cost: 0}})
	assert.Error(t, err, "zero cost")

	tbl, err := New([]Keyswitch{{ID: "a", Cost: 1}, {ID: "b", Cost: 3}})
	require.NoError(t, err)
	a, _ := tbl.Lookup("a")
	b, _ := tbl.Lookup("b")
	assert.Equal(t, LeftHand, a.Hand)
	assert.Equal(t, RightHand, b.Hand)
	assert.Equal(t, 1, b.Index)
}
