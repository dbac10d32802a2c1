//go:build !devgeo

package locale

// DevOverrideEnabled is true only in binaries built with the devgeo tag.
const DevOverrideEnabled = false
