// Package openapi exposes the contracts for reading validation models out of
// OpenAPI documents. Loaders fetch raw documents from files, an fs.FS or HTTP;
// parsers turn components.schemas into schema.Model values whose factories
// validate instances against the originating schema. Implementations live
// under internal/openapi so kin-openapi types do not leak to callers.
package openapi
