package vkdevice

import (
	"fmt"
	"log"
	"os"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// Logger receives backend diagnostics (missing extensions, debug report
// callback messages) that don't rise to the level of a returned error.
// Grounded on the teacher's core.go info_log/error_log/warn_log fields,
// collapsed to the single *log.Logger rgraph.Logger already uses.
var Logger = log.New(os.Stderr, "vkdevice: ", log.Ldate|log.Ltime)

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

func newError(ret vk.Result) error {
	if ret != vk.Success {
		pc, file, line, ok := runtime.Caller(1)
		if !ok {
			return fmt.Errorf("vulkan error: %d", ret)
		}
		fn := runtime.FuncForPC(pc)
		return fmt.Errorf("vulkan error: %d on %s (%s:%d)", ret, fn.Name(), file, line)
	}
	return nil
}

func orPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}

func checkErr(err *error) {
	if v := recover(); v != nil {
		*err = fmt.Errorf("%+v", v)
	}
}

func checkErrStack(err *error) {
	if v := recover(); v != nil {
		stack := make([]byte, 32*1024)
		n := runtime.Stack(stack, false)
		switch event := v.(type) {
		case error:
			*err = fmt.Errorf("%s\n%s", event.Error(), stack[:n])
		default:
			*err = fmt.Errorf("%+v %s", v, stack[:n])
		}
	}
}
