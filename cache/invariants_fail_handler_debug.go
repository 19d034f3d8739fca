//go:build debug

package cache

import (
	"fmt"

	"github.com/onsi/gomega"
)

// init wires gomega's failure handler so the Expect calls in
// checkInvariants panic on violation instead of silently requiring a
// ginkgo spec context that debug-build production code never has.
func init() {
	gomega.RegisterFailHandler(func(message string, callerSkip ...int) {
		panic(fmt.Errorf("cache: invariant violated: %s", message))
	})
}
