package stacktrace

import "testing"

func TestInternalPaths(t *testing.T) {
	stack := []byte("goroutine 7 [running]:\n" +
		"runtime/debug.Stack()\n" +
		"\t/usr/local/go/src/runtime/debug/stack.go:26 +0x5e\n" +
		"github.com/shandysiswandi/otpgate/internal/otpauth/usecase.(*Usecase).Verify(...)\n" +
		"\t/src/otpgate/internal/otpauth/usecase/challenge_verify.go:42 +0x1d\n" +
		"main.main()\n" +
		"\t/src/otpgate/main.go:10 +0x25\n")

	got := InternalPaths(stack)

	if len(got) != 1 || got[0] != "internal/otpauth/usecase/challenge_verify.go:42" {
		t.Fatalf("InternalPaths = %v", got)
	}
}
