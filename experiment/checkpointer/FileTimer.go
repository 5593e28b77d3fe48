package checkpointer

import (
	"fmt"
	"path/filepath"
	"time"
)

// FileTimer returns a function which will append to a filename the
// number of nanoseconds since January 1, 1970.
func FileTimer(filename, extension string) func() string {
	return func() string {
		return fmt.Sprintf("%v-%v%v", filename, time.Now().UnixNano(),
			extension)
	}
}

// FilePrefixTimer returns a function which will return a filename in
// dir prefixed with the number of nanoseconds since January 1, 1970.
func FilePrefixTimer(dir, filename string) func() string {
	return func() string {
		name := fmt.Sprintf("%v_%v", time.Now().UnixNano(), filename)
		return filepath.Join(dir, name)
	}
}
