package schema

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chxio/chgo/errs"
	"github.com/chxio/chgo/registry"
	"github.com/chxio/chgo/value"
)

func stagingSchema() TableSchema {
	return NewTableSchema("events", []registry.ColumnDescriptor{
		{Name: "id", Category: registry.CategoryInteger, WidthBits: 64},
		{Name: "note", Category: registry.CategoryString, DefaultKind: registry.DefaultValue},
		{Name: "derived", Category: registry.CategoryString, DefaultKind: registry.DefaultMaterialized},
		{Name: "tag", Category: registry.CategoryNullable, Nullable: true, Children: []registry.ColumnDescriptor{
			{Category: registry.CategoryString, Nullable: true},
		}},
	})
}

func TestSetByNameIsCaseInsensitive(t *testing.T) {
	b := NewRowStagingBuffer(stagingSchema())

	require.NoError(t, b.SetByName("ID", value.FromUint(nil, big.NewInt(1))))
	require.NoError(t, b.SetByName("Note", value.FromString(nil, "x")))

	err := b.SetByName("nope", value.FromString(nil, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSchema)
}

func TestSetByIndexIsOneBased(t *testing.T) {
	b := NewRowStagingBuffer(stagingSchema())

	require.NoError(t, b.SetByIndex(1, value.FromUint(nil, big.NewInt(1))))

	require.Error(t, b.SetByIndex(0, value.Value{}), "index 0 is out of range in a 1-based API")
	require.Error(t, b.SetByIndex(5, value.Value{}))
}

func TestCommitSkipsMaterializedAndFlagsDefaults(t *testing.T) {
	b := NewRowStagingBuffer(stagingSchema())

	require.NoError(t, b.SetByName("id", value.FromUint(nil, big.NewInt(7))))

	cols, vals, set, err := b.Commit()
	require.NoError(t, err)

	// id, note, tag survive; the materialized column does not.
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "note", cols[1].Name)
	assert.Equal(t, "tag", cols[2].Name)

	assert.Equal(t, []bool{true, false, false}, set)
	require.Len(t, vals, 3)
}

func TestCommitMissingRequired(t *testing.T) {
	b := NewRowStagingBuffer(stagingSchema())

	// id has no default and is not nullable; leaving it unset must fail.
	_, _, _, err := b.Commit()
	require.Error(t, err)

	var ee *errs.EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "missing_required", ee.Reason)
	assert.Equal(t, "id", ee.Column)
}

func TestResetClearsStagedValues(t *testing.T) {
	b := NewRowStagingBuffer(stagingSchema())

	require.NoError(t, b.SetByName("id", value.FromUint(nil, big.NewInt(7))))
	b.Reset()

	_, _, _, err := b.Commit()
	require.Error(t, err, "reset must drop the staged id")
}

func TestTableSchemaIndexOf(t *testing.T) {
	s := stagingSchema()

	i, err := s.IndexOf("DERIVED")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = s.IndexOf("ghost")
	require.Error(t, err)
}
