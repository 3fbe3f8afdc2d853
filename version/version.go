// Copyright (C) 2019-2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package version defines version variables.
package version

import (
	"fmt"

	"github.com/ava-labs/avalanchego/version"
)

const Name = "tokenmeta"

var Version = version.NewDefaultVersion(0, 1, 0)

// String returns the build as "name@version".
func String() string {
	return fmt.Sprintf("%s@%s", Name, Version)
}

// Compatible returns true if a daemon reporting [remote] speaks the same
// service surface as this build. Pre-1.0 minors break compatibility.
func Compatible(remote string) bool {
	var major, minor, patch int
	if _, err := fmt.Sscanf(remote, "v%d.%d.%d", &major, &minor, &patch); err != nil {
		return false
	}
	if major != Version.Major() {
		return false
	}
	return major > 0 || minor == Version.Minor()
}
