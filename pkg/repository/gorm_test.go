package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrDuplicate)

	// The raw MySQL form, for driver versions the dialector does not map.
	raw := errors.New("Error 1062 (23000): Duplicate entry 'keyboard' for key 'products.slug'")
	assert.ErrorIs(t, translate(raw), ErrDuplicate)

	// Anything else passes through untouched.
	other := errors.New("connection refused")
	assert.Equal(t, other, translate(other))
}
