package check

import "fmt"

// PanicIfErr panics on a non-nil error. For programmer errors only;
// recoverable conditions must be returned to the caller.
func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

func PanicIfNot(flag bool) {
	if !flag {
		panic("invariant violation")
	}
}

func PanicIfNotf(flag bool, format string, args ...any) {
	if !flag {
		panic(fmt.Sprintf(format, args...))
	}
}
