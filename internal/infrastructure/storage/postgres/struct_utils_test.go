package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"padihub/internal/core/entity"
	"padihub/internal/core/id"
)

type mockCatalog struct {
	entity.BaseCatalog
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	expectedCols := []string{
		"id", "deletion_mark", "version", "code", "name",
	}

	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
}

func TestExtractDBColumnsCached(t *testing.T) {
	first := ExtractDBColumns[mockCatalog]()
	second := ExtractDBColumns[mockCatalog]()
	assert.Equal(t, first, second)
}

func TestStructToMap(t *testing.T) {
	cat := mockCatalog{
		BaseCatalog: entity.BaseCatalog{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				DeletionMark: true,
				Version:      5,
			},
		},
		Code: "GRADE-A",
		Name: "Long grain",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "GRADE-A", m["code"])
	assert.Equal(t, "Long grain", m["name"])
}
