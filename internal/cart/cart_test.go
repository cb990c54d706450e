package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shopsync/internal/domain/product"
)

func testProduct(id, price string) product.Product {
	return product.Product{
		ID:    id,
		Title: "product " + id,
		Price: decimal.RequireFromString(price),
	}
}

func TestAdd_DeduplicatesByID(t *testing.T) {
	c := New()
	c.Add(testProduct("p1", "10"))
	c.Add(testProduct("p2", "20"))
	c.Add(testProduct("p1", "10"))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestRemove(t *testing.T) {
	c := New()
	c.Add(testProduct("p1", "10"))
	c.Add(testProduct("p2", "20"))

	c.Remove("p1")

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].Product.ID)

	c.Remove("missing")
	assert.Len(t, c.Items(), 1)
}

func TestDecrement_FloorsAtOne(t *testing.T) {
	c := New()
	c.Add(testProduct("p1", "10"))
	c.Increment("p1")

	c.Decrement("p1")
	c.Decrement("p1")
	c.Decrement("p1")

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestTotal(t *testing.T) {
	c := New()
	assert.True(t, c.Total().IsZero())

	c.Add(testProduct("p1", "249.99"))
	c.Add(testProduct("p2", "30"))
	c.Increment("p1")

	assert.True(t, c.Total().Equal(decimal.RequireFromString("529.98")))
}

func TestClear(t *testing.T) {
	c := New()
	c.Add(testProduct("p1", "10"))

	c.Clear()

	assert.Empty(t, c.Items())
	assert.True(t, c.Total().IsZero())
}

func TestItems_ReturnsCopy(t *testing.T) {
	c := New()
	c.Add(testProduct("p1", "10"))

	items := c.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, c.Items()[0].Quantity)
}
