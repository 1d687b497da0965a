// Package nvs provides the persistent key-value collaborator used by the
// settings layer.
//
// Values are addressed by (namespace, key) and carry a type tag so a read
// through the wrong accessor fails with ErrTypeMismatch instead of
// returning garbage. All operations are synchronous and are expected to
// be called from inside the owning component's critical section.
package nvs
