//go:build debug

package tag

const debug = true
