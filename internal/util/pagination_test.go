package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		page, size        int
		wantPage, wantOff int
		wantLimit         int
	}{
		{name: "first page", page: 1, size: 5, wantPage: 1, wantOff: 0, wantLimit: 5},
		{name: "third page", page: 3, size: 5, wantPage: 3, wantOff: 10, wantLimit: 5},
		{name: "page below one", page: -2, size: 5, wantPage: 1, wantOff: 0, wantLimit: 5},
		{name: "size zero", page: 2, size: 0, wantPage: 2, wantOff: DefaultPageSize, wantLimit: DefaultPageSize},
		{name: "size too big", page: 1, size: MaxPageSize + 1, wantPage: 1, wantOff: 0, wantLimit: DefaultPageSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page, off, limit := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantOff, off)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestNewMeta(t *testing.T) {
	t.Parallel()

	m := NewMeta(2, 10, 10, 25)
	assert.Equal(t, Meta{Page: 2, Size: 10, Total: 25, TotalPages: 3, HasPrev: true, HasNext: true}, m)

	m = NewMeta(3, 20, 10, 25)
	assert.False(t, m.HasNext)
}

func TestParseIntDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("abc", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
}
