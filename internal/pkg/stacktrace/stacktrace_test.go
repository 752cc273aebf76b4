package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 1 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/clovigo/internal/pkg/router.(*Router).recoverer.func1()
	/app/internal/pkg/router/middleware_recover.go:21 +0x45
panic({0x1, 0x2})
	/usr/local/go/src/runtime/panic.go:791 +0x132
github.com/shandysiswandi/clovigo/internal/accounts/usecase.(*Usecase).Resend(...)
	/app/internal/accounts/usecase/otp_resend.go:40`)

	assert.Equal(t, []string{
		"internal/pkg/router/middleware_recover.go:21",
		"internal/accounts/usecase/otp_resend.go:40",
	}, InternalPaths(stack))

	assert.Empty(t, InternalPaths(nil))
}
