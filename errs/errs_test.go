package errs

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Error_Is(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		match    bool
	}{
		{"misuse", Misuse("double start"), ErrMisuse, true},
		{"misuse_vs_task", Misuse("double start"), ErrTask, false},
		{"parameter", Parameter(2, "bad"), ErrParameter, true},
		{"resource_wrapped", fmt.Errorf("ctx: %w", Resource(IO_OPEN, "x.log", os.ErrNotExist)), ErrResource, true},
		{"resource_cause", Resource(IO_OPEN, "x.log", os.ErrNotExist), os.ErrNotExist, true},
		{"delivery", Delivery(errors.New("boom")), ErrDelivery, true},
		{"task", Task("counter", errors.New("boom")), ErrTask, true},
		{"runtime", Runtime("syscall", nil), ErrRuntime, true},
		{"plain", errors.New("plain"), ErrMisuse, false},
		{"non_sentinel_target", Misuse("a"), Misuse("b"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func Test_Error_Text(t *testing.T) {
	assert.Equal(t, "misuse: double start", Misuse("double start").Error())
	assert.Equal(t, "parameter error: parameter nr. 0", Parameter(0, "").Error())
	assert.Equal(t, "resource error: open failed with `a.log`: denied",
		Resource(IO_OPEN, "a.log", errors.New("denied")).Error())
	assert.Equal(t, "task error in `counter`: boom", Task("counter", errors.New("boom")).Error())
	assert.Equal(t, "unknown error", (&Error{Kind: 200, Param: NO_PARAM}).Error())
}

func Test_KindOf(t *testing.T) {
	assert.Equal(t, KIND_MISUSE, KindOf(fmt.Errorf("wrapped: %w", Misuse("x"))))
	assert.Equal(t, KIND_DELIVERY, KindOf(Delivery(Misuse("inner"))))
	assert.Equal(t, KIND_UNKNOWN, KindOf(errors.New("plain")))
	assert.Equal(t, KIND_UNKNOWN, KindOf(nil))
}

func Test_PanicError(t *testing.T) {
	t.Run("string_value", func(t *testing.T) {
		p := NewPanicError("oops", nil)
		assert.Equal(t, "panic: oops", p.Error())
		assert.NotEmpty(t, p.Stack)
		assert.Nil(t, p.Unwrap())
	})
	t.Run("error_value", func(t *testing.T) {
		cause := errors.New("cause")
		p := NewPanicError(cause, []byte("stack"))
		assert.ErrorIs(t, p, cause)
		assert.Equal(t, "stack", p.Stack)
	})
}
