package ledgererr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeMapping(t *testing.T) {
	assert.Equal(t, 400, Validationf("bad input").StatusCode())
	assert.Equal(t, 404, NotFoundf("missing").StatusCode())
	assert.Equal(t, 409, Invariantf(CodeOverSettlement, "too much").StatusCode())
	assert.Equal(t, 409, Transitionf(CodeInvalidTransition, "no edge").StatusCode())
	assert.Equal(t, 502, Externalf("gateway down").StatusCode())
}

func TestIsCodeAndIsKind(t *testing.T) {
	err := Invariantf(CodeAllocationMismatch, "sum %s != intent %s", "240", "250")
	assert.True(t, IsCode(err, CodeAllocationMismatch))
	assert.False(t, IsCode(err, CodeOverSettlement))
	assert.True(t, IsKind(err, Invariant))
	assert.False(t, IsKind(err, Validation))

	plain := errors.New("plain")
	assert.False(t, IsCode(plain, CodeAllocationMismatch))
	assert.False(t, IsKind(plain, Invariant))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "OverSettlement: too much cash", Invariantf(CodeOverSettlement, "too much cash").Error())
	assert.Equal(t, "just a message", Validationf("just a message").Error())
}
