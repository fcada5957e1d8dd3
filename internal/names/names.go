// Package names implements package identity: native scope/name pairs and
// names borrowed from the Wally registry.
package names

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quarry/internal/apperr"
)

// WallyPrefix marks the textual form of a Wally name.
const WallyPrefix = "wally#"

var (
	nativePart = regexp.MustCompile(`^[a-z0-9_]+$`)
	wallyPart  = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// ErrInvalidName is wrapped by InvalidNameError.
var ErrInvalidName = errors.New("invalid package name")

// InvalidNameError reports a name that failed validation.
type InvalidNameError struct {
	Value  string
	Reason error
}

func (e *InvalidNameError) Error() string {
	if e.Reason == nil {
		return fmt.Sprintf("invalid package name %q", e.Value)
	}
	return fmt.Sprintf("invalid package name %q: %v", e.Value, e.Reason)
}

func (e *InvalidNameError) Unwrap() []error {
	return []error{ErrInvalidName, apperr.ErrInvalidInput}
}

func split(s string) (string, string, bool) {
	scope, name, ok := strings.Cut(s, "/")
	if !ok || strings.Contains(name, "/") {
		return "", "", false
	}
	return scope, name, true
}

func validateNative(part string) error {
	return validation.Validate(part,
		validation.Required,
		validation.Length(3, 32),
		validation.Match(nativePart).Error("must contain only a-z, 0-9 and _"),
		validation.By(func(any) error {
			if strings.HasPrefix(part, "_") || strings.HasSuffix(part, "_") {
				return errors.New("must not start or end with _")
			}
			return nil
		}),
	)
}

func validateWally(part string) error {
	return validation.Validate(part,
		validation.Required,
		validation.Length(1, 64),
		validation.Match(wallyPart).Error("must contain only a-z, 0-9 and -"),
	)
}

// PackageName is a native scope/name pair.
type PackageName struct {
	scope string
	name  string
}

// ParsePackageName parses "scope/name".
func ParsePackageName(s string) (PackageName, error) {
	scope, name, ok := split(s)
	if !ok {
		return PackageName{}, &InvalidNameError{Value: s, Reason: errors.New("expected scope/name")}
	}
	if err := validateNative(scope); err != nil {
		return PackageName{}, &InvalidNameError{Value: s, Reason: fmt.Errorf("scope: %w", err)}
	}
	if err := validateNative(name); err != nil {
		return PackageName{}, &InvalidNameError{Value: s, Reason: fmt.Errorf("name: %w", err)}
	}
	return PackageName{scope: scope, name: name}, nil
}

// Scope returns the scope part.
func (n PackageName) Scope() string { return n.scope }

// Name returns the name part.
func (n PackageName) Name() string { return n.name }

// Parts returns scope and name, the path segments of the package's index file.
func (n PackageName) Parts() (string, string) { return n.scope, n.name }

// IsZero reports whether n was never set.
func (n PackageName) IsZero() bool { return n.scope == "" && n.name == "" }

func (n PackageName) String() string { return n.scope + "/" + n.name }

// MarshalText implements encoding.TextMarshaler.
func (n PackageName) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *PackageName) UnmarshalText(b []byte) error {
	v, err := ParsePackageName(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// WallyPackageName is a scope/name pair from the Wally registry.
type WallyPackageName struct {
	scope string
	name  string
}

// ParseWallyPackageName parses "wally#scope/name". The prefix is optional.
func ParseWallyPackageName(s string) (WallyPackageName, error) {
	scope, name, ok := split(strings.TrimPrefix(s, WallyPrefix))
	if !ok {
		return WallyPackageName{}, &InvalidNameError{Value: s, Reason: errors.New("expected scope/name")}
	}
	if err := validateWally(scope); err != nil {
		return WallyPackageName{}, &InvalidNameError{Value: s, Reason: fmt.Errorf("scope: %w", err)}
	}
	if err := validateWally(name); err != nil {
		return WallyPackageName{}, &InvalidNameError{Value: s, Reason: fmt.Errorf("name: %w", err)}
	}
	return WallyPackageName{scope: scope, name: name}, nil
}

func (n WallyPackageName) Scope() string { return n.scope }
func (n WallyPackageName) Name() string  { return n.name }

// Parts returns scope and name.
func (n WallyPackageName) Parts() (string, string) { return n.scope, n.name }

func (n WallyPackageName) String() string { return WallyPrefix + n.scope + "/" + n.name }

// MarshalText implements encoding.TextMarshaler.
func (n WallyPackageName) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *WallyPackageName) UnmarshalText(b []byte) error {
	v, err := ParseWallyPackageName(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// PackageNames is either a native or a Wally name. The zero value is not a
// valid name. Values are comparable and usable as map keys.
type PackageNames struct {
	wally bool
	scope string
	name  string
}

// Native wraps a native name.
func Native(n PackageName) PackageNames {
	return PackageNames{scope: n.scope, name: n.name}
}

// Wally wraps a Wally name.
func Wally(n WallyPackageName) PackageNames {
	return PackageNames{wally: true, scope: n.scope, name: n.name}
}

// ParsePackageNames parses either textual form.
func ParsePackageNames(s string) (PackageNames, error) {
	if strings.HasPrefix(s, WallyPrefix) {
		w, err := ParseWallyPackageName(s)
		if err != nil {
			return PackageNames{}, err
		}
		return Wally(w), nil
	}
	n, err := ParsePackageName(s)
	if err != nil {
		return PackageNames{}, err
	}
	return Native(n), nil
}

// IsWally reports whether the name belongs to the Wally registry.
func (n PackageNames) IsWally() bool { return n.wally }

// AsNative returns the native name, if it is one.
func (n PackageNames) AsNative() (PackageName, bool) {
	if n.wally {
		return PackageName{}, false
	}
	return PackageName{scope: n.scope, name: n.name}, true
}

// AsWally returns the Wally name, if it is one.
func (n PackageNames) AsWally() (WallyPackageName, bool) {
	if !n.wally {
		return WallyPackageName{}, false
	}
	return WallyPackageName{scope: n.scope, name: n.name}, true
}

// Parts returns scope and name.
func (n PackageNames) Parts() (string, string) { return n.scope, n.name }

func (n PackageNames) String() string {
	if n.wally {
		return WallyPrefix + n.scope + "/" + n.name
	}
	return n.scope + "/" + n.name
}

// Compare orders native names before Wally names, then by text.
func (n PackageNames) Compare(o PackageNames) int {
	if n.wally != o.wally {
		if n.wally {
			return 1
		}
		return -1
	}
	return strings.Compare(n.String(), o.String())
}

// MarshalText implements encoding.TextMarshaler.
func (n PackageNames) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *PackageNames) UnmarshalText(b []byte) error {
	v, err := ParsePackageNames(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}
