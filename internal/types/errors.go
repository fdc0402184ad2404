package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for jsonforge operations.
var (
	// ErrNoName indicates a component configuration map without a name key.
	ErrNoName = errors.New("no name")

	// ErrUnknownName indicates a name that is not registered in the category.
	ErrUnknownName = errors.New("unknown name")

	// ErrMissingKey indicates a required parameter key is absent.
	ErrMissingKey = errors.New("missing key")

	// ErrShapeMismatch indicates a raw parameter whose shape or cardinality
	// does not match the declared parameter.
	ErrShapeMismatch = errors.New("parameter shape mismatch")

	// ErrEmbedTooDeep indicates embedded components nested beyond MaxEmbedDepth.
	ErrEmbedTooDeep = errors.New("embedded components nested too deeply")

	// ErrDuplicateName indicates a registration under an existing name.
	ErrDuplicateName = errors.New("name already registered")

	// ErrMalformedFactory indicates a descriptor without name or factory, or
	// with duplicated parameter names.
	ErrMalformedFactory = errors.New("malformed factory")

	// ErrUnboundParameter indicates a parameter without a recognized binding form.
	ErrUnboundParameter = errors.New("parameter lacks a recognized binding form")

	// ErrRuleSignature indicates a rule factory not accepting exactly the
	// registry facade and the rule spec.
	ErrRuleSignature = errors.New("rule factory must accept exactly the registry and the rule spec")

	// ErrStopRuleProcessing is returned by Rule.Apply to end the pipeline early.
	// It is a signal, not a failure: the document mutated so far is the result.
	ErrStopRuleProcessing = errors.New("stop rule processing")

	// ErrCoercionFailed indicates a value could not be converted to the requested type.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrInvalidPath indicates a path expression that does not compile.
	ErrInvalidPath = errors.New("invalid path expression")

	// ErrPathTooDeep indicates a path exceeding MaxPathDepth.
	ErrPathTooDeep = errors.New("path exceeds maximum depth")

	// ErrDocumentTooLarge indicates a document exceeding MaxDocumentSize.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")

	// ErrMalformedDocument indicates input that is not a single JSON value.
	ErrMalformedDocument = errors.New("malformed JSON document")
)

// ConfigError reports a malformed component configuration. It is fatal to the
// single lookup or bind operation that produced it.
type ConfigError struct {
	Category  Category
	Component string // component name, empty when the name itself is the problem
	Key       string // parameter key, empty when not parameter specific
	Err       error
}

func (e *ConfigError) Error() string {
	msg := e.Err.Error()
	if e.Key != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Key)
	}
	if e.Component != "" {
		return fmt.Sprintf("%s %q: %s", e.Category, e.Component, msg)
	}
	return fmt.Sprintf("%s: %s", e.Category, msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// RegistrationError reports a descriptor rejected at registration time.
type RegistrationError struct {
	Category Category
	Name     string
	Err      error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s %q: %s", e.Category, e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// InstantiationError wraps a failure raised while a factory built its instance.
type InstantiationError struct {
	Category Category
	Name     string
	Err      error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("instantiate %s %q: %s", e.Category, e.Name, e.Err)
}

func (e *InstantiationError) Unwrap() error { return e.Err }

// AbortError is returned by Rule.Apply to fail the whole transformation.
// The caller discards the partially mutated document.
type AbortError struct {
	Rule   string
	Order  int
	Reason string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("transformation aborted by rule %d (%s): %s", e.Order, e.Rule, e.Reason)
}

// IsAbort reports whether err carries an AbortError.
func IsAbort(err error) bool {
	var abort *AbortError
	return errors.As(err, &abort)
}
