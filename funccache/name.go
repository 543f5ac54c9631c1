package funccache

import (
	"reflect"
	"runtime"
	"strings"
)

// FunctionName returns the qualified name of fn as reported by the runtime,
// e.g. main.heavyCompute or github.com/acme/app/report.(*Service).Build.
// Method values drop their -fm suffix. Non-function values yield "".
func FunctionName(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return ""
	}
	return strings.TrimSuffix(rf.Name(), "-fm")
}
