// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package registry

import (
	"github.com/samber/oops"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// Error codes for registry failures.
const (
	CodeUnknownPoint       = "UNKNOWN_EXTENSION_POINT"
	CodeNamespaceViolation = "NAMESPACE_VIOLATION"
	CodeDuplicate          = "DUPLICATE_CONTRIBUTION"
	CodeUnknownChrome      = "UNKNOWN_CHROME_FLAG"
)

// ErrUnknownPoint creates an error for an extension point the shell does not define.
func ErrUnknownPoint(point pluginsdk.Point) error {
	return oops.Code(CodeUnknownPoint).
		In("registry").
		With("point", string(point)).
		Errorf("unknown extension point %q", point)
}

// ErrNamespaceViolation creates an error for a contribution id outside the caller's namespace.
func ErrNamespaceViolation(caller, id string) error {
	return oops.Code(CodeNamespaceViolation).
		In("registry").
		With("plugin", caller).
		With("contribution", id).
		Hint("contribution ids must have the form <plugin>:<local id>").
		Errorf("plugin %s cannot register %q", caller, id)
}

// ErrDuplicate creates an error for an id that is already registered at a point.
func ErrDuplicate(point pluginsdk.Point, id, owner string) error {
	return oops.Code(CodeDuplicate).
		In("registry").
		With("point", string(point)).
		With("contribution", id).
		With("owner", owner).
		Errorf("%s %q is already registered", point, id)
}

// ErrUnknownChrome creates an error for an unknown chrome flag.
func ErrUnknownChrome(flag pluginsdk.ChromeFlag) error {
	return oops.Code(CodeUnknownChrome).
		In("registry").
		With("flag", string(flag)).
		Errorf("unknown chrome flag %q", flag)
}
