package registry

import (
	"testing"

	"github.com/restmap/restmap/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	reg := New()
	person := &resource.Resource{TableName: "person"}
	order := &resource.Resource{TableName: "order"}

	reg.Register(person, order)
	assert.Equal(t, 2, reg.Len())

	got, ok := reg.Lookup("persons")
	require.True(t, ok)
	assert.Same(t, person, got)

	got, ok = reg.Lookup("orders")
	require.True(t, ok)
	assert.Same(t, order, got)
}

func TestLookupUnknownEndpoint(t *testing.T) {
	reg := New()
	_, ok := reg.Lookup("persons")
	assert.False(t, ok)
}

func TestRegisterLastWriteWins(t *testing.T) {
	reg := New()
	first := &resource.Resource{TableName: "person"}
	second := &resource.Resource{TableName: "Person"} // same derived endpoint

	reg.Register(first)
	reg.Register(second)

	assert.Equal(t, 1, reg.Len())
	got, ok := reg.Lookup("persons")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegisterExplicitOverride(t *testing.T) {
	reg := New()
	people := &resource.Resource{TableName: "person", Endpoint: "people"}
	reg.Register(people)

	_, ok := reg.Lookup("persons")
	assert.False(t, ok)

	got, ok := reg.Lookup("people")
	require.True(t, ok)
	assert.Same(t, people, got)
}

func TestResourcesKeepRegistrationOrder(t *testing.T) {
	reg := New()
	person := &resource.Resource{TableName: "person"}
	order := &resource.Resource{TableName: "order"}
	widget := &resource.Resource{TableName: "widget"}

	reg.Register(person)
	reg.Register(order, widget)

	got := reg.Resources()
	require.Len(t, got, 3)
	assert.Same(t, person, got[0])
	assert.Same(t, order, got[1])
	assert.Same(t, widget, got[2])
}

func TestReRegistrationKeepsOriginalPosition(t *testing.T) {
	reg := New()
	person := &resource.Resource{TableName: "person"}
	order := &resource.Resource{TableName: "order"}
	replacement := &resource.Resource{TableName: "person", Methods: []string{"GET"}}

	reg.Register(person, order)
	reg.Register(replacement)

	got := reg.Resources()
	require.Len(t, got, 2)
	assert.Same(t, replacement, got[0])
	assert.Same(t, order, got[1])
}
