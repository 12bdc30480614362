package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_Key(t *testing.T) {
	assert.Equal(t, "1.2.3.4:443", Record{Address: "1.2.3.4", Port: "443"}.Key())
	assert.Equal(t, "[2001:db8::1]:8443", Record{Address: "2001:db8::1", Port: "8443"}.Key())
}

func TestDedupe_PreservesFirstOccurrenceOrder(t *testing.T) {
	in := []Record{
		{Address: "5.6.7.8", Port: "443", Source: "a"},
		{Address: "1.2.3.4", Port: "443", Source: "a"},
		{Address: "5.6.7.8", Port: "443", Source: "b"},
		{Address: "5.6.7.8", Port: "8443", Source: "b"},
	}

	out := Dedupe(in)

	assert.Equal(t, []Record{
		{Address: "5.6.7.8", Port: "443", Source: "a"},
		{Address: "1.2.3.4", Port: "443", Source: "a"},
		{Address: "5.6.7.8", Port: "8443", Source: "b"},
	}, out)
	assert.Empty(t, Dedupe(nil))
}
