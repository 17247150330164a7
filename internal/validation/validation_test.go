package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "book_worm-42", false},
		{"Too Short", "bw", true},
		{"Too Long", strings.Repeat("a", 31), true},
		{"Illegal Chars", "reader@home", true},
		{"Starts Dash", "-reader", true},
		{"Ends Underscore", "reader_", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBook(t *testing.T) {
	t.Parallel()
	valid := BookInput{Title: "Dune", Author: "Frank Herbert", Condition: "used"}
	tests := []struct {
		name    string
		mutate  func(*BookInput)
		wantErr string
	}{
		{"Valid", func(*BookInput) {}, ""},
		{"Missing Title", func(b *BookInput) { b.Title = "  " }, "title is required"},
		{"Missing Author", func(b *BookInput) { b.Author = "" }, "author is required"},
		{"Missing Condition", func(b *BookInput) { b.Condition = "" }, "condition is required"},
		{"Bad Condition", func(b *BookInput) { b.Condition = "mint" }, "condition must be"},
		{"Long Description", func(b *BookInput) { b.Description = strings.Repeat("x", 5001) }, "description must not exceed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := ValidateBook(in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateBookFields_PartialUpdate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateBookFields(BookInput{Description: "new blurb"}))
	assert.Error(t, ValidateBookFields(BookInput{Condition: "damaged"}))
}

func TestRequiredText(t *testing.T) {
	t.Parallel()
	v, err := RequiredText("content", "  hello  ", 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	_, err = RequiredText("content", "   ", 10)
	assert.EqualError(t, err, "content is required")

	_, err = RequiredText("content", "ééééééééééé", 10)
	assert.Error(t, err)
}
