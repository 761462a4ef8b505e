package local

import (
	"reflect"
)

func funcPC(f interface{}) uintptr {
	return reflect.ValueOf(f).Pointer()
}
