package assert

import "github.com/oomph-ac/oflight/oerror"

// IsTrue panics with an oerror.OomphError if ok is false. It is only used where a panic is recovered, such
// as inside detection rules.
func IsTrue(ok bool, message string, args ...any) {
	if !ok {
		panic(oerror.New(message, args...))
	}
}
